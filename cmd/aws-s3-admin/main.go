// Package main is the entry point for the aws-s3 admin CLI.
// It manages users and access keys directly against the credential store,
// for bootstrapping and operations without a running gateway.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/alanjrogers/aws-s3/internal/config"
	"github.com/alanjrogers/aws-s3/internal/pkg/crypto"
	"github.com/alanjrogers/aws-s3/internal/repository"
	"github.com/alanjrogers/aws-s3/internal/repository/postgres"
	"github.com/alanjrogers/aws-s3/internal/repository/sqlite"
	"github.com/alanjrogers/aws-s3/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "user":
		err = runUserCommand(os.Args[2:])
	case "key":
		err = runKeyCommand(os.Args[2:])
	case "keygen":
		err = runKeygen()
	case "cleanup":
		err = runCleanup(os.Args[2:])
	case "version":
		fmt.Printf("aws-s3 admin CLI\nVersion: %s\nBuild Time: %s\nGit Commit: %s\n",
			Version, BuildTime, GitCommit)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`aws-s3 admin CLI

Usage:
  aws-s3-admin <command> [arguments]

Commands:
  user      Manage users (create, list, deactivate, activate)
  key       Manage access keys (create, list, revoke, delete)
  keygen    Generate a random 32-byte master encryption key (hex)
  cleanup   Delete expired access keys
  version   Print version information
  help      Show this help message

Examples:
  aws-s3-admin user create -username admin -email admin@example.com -password secret123 -admin
  aws-s3-admin key create -user-id 1 -description "ci pipeline"
  aws-s3-admin key revoke -access-key-id AKIA...
  aws-s3-admin cleanup

All commands accept -config to point at a configuration file.`)
}

// =============================================================================
// Command Environment
// =============================================================================

// env bundles the services a command operates on.
type env struct {
	userService *service.UserService
	iamService  *service.IAMService
	close       func()
}

// setup loads configuration and connects the services.
func setup(configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)
	ctx := context.Background()

	repos, health, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	encryptionKey, err := cfg.Auth.GetEncryptionKey()
	if err != nil {
		health.Close()
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	encryptor, err := crypto.NewEncryptor(encryptionKey)
	if err != nil {
		health.Close()
		return nil, err
	}

	return &env{
		userService: service.NewUserService(repos.User, logger),
		iamService:  service.NewIAMService(repos.AccessKey, repos.User, encryptor, nil, 0, logger),
		close:       func() { _ = health.Close() },
	}, nil
}

// openRepositories connects to the configured database backend and runs
// migrations.
func openRepositories(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*repository.Repositories, repository.DatabaseHealth, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		sqliteCfg := sqlite.DefaultConfig(cfg.Database.Path)
		sqliteCfg.JournalMode = cfg.Database.JournalMode
		sqliteCfg.BusyTimeout = cfg.Database.BusyTimeout

		db, err := sqlite.NewDB(ctx, sqliteCfg, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return &repository.Repositories{
			User:      sqlite.NewUserRepository(db),
			AccessKey: sqlite.NewAccessKeyRepository(db),
		}, db, nil

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return &repository.Repositories{
			User:      postgres.NewUserRepository(db),
			AccessKey: postgres.NewAccessKeyRepository(db),
		}, db, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// =============================================================================
// User Commands
// =============================================================================

func runUserCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("user command requires a subcommand: create, list, activate, deactivate")
	}

	switch args[0] {
	case "create":
		return runUserCreate(args[1:])
	case "list":
		return runUserList(args[1:])
	case "activate":
		return runUserSetActive(args[1:], true)
	case "deactivate":
		return runUserSetActive(args[1:], false)
	default:
		return fmt.Errorf("unknown user subcommand %q", args[0])
	}
}

func runUserCreate(args []string) error {
	fs := flag.NewFlagSet("user create", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	username := fs.String("username", "", "username (required)")
	email := fs.String("email", "", "email address (required)")
	password := fs.String("password", "", "password (required)")
	isAdmin := fs.Bool("admin", false, "grant admin rights")
	_ = fs.Parse(args)

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	out, err := e.userService.Create(context.Background(), service.CreateUserInput{
		Username: *username,
		Email:    *email,
		Password: *password,
		IsAdmin:  *isAdmin,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created user %q (id=%d, admin=%v)\n", out.User.Username, out.User.ID, out.User.IsAdmin)
	return nil
}

func runUserList(args []string) error {
	fs := flag.NewFlagSet("user list", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	_ = fs.Parse(args)

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	out, err := e.userService.List(context.Background(), service.ListUsersInput{Limit: 100})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tACTIVE\tADMIN\tCREATED")
	for _, u := range out.Users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%v\t%v\t%s\n",
			u.ID, u.Username, u.Email, u.IsActive, u.IsAdmin,
			u.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runUserSetActive(args []string, active bool) error {
	fs := flag.NewFlagSet("user activate", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	userID := fs.Int64("id", 0, "user ID (required)")
	_ = fs.Parse(args)

	if *userID == 0 {
		return fmt.Errorf("-id is required")
	}

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.userService.SetActive(context.Background(), *userID, active); err != nil {
		return err
	}

	state := "deactivated"
	if active {
		state = "activated"
	}
	fmt.Printf("User %d %s\n", *userID, state)
	return nil
}

// =============================================================================
// Access Key Commands
// =============================================================================

func runKeyCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("key command requires a subcommand: create, list, revoke, delete")
	}

	switch args[0] {
	case "create":
		return runKeyCreate(args[1:])
	case "list":
		return runKeyList(args[1:])
	case "revoke":
		return runKeyRevoke(args[1:])
	case "delete":
		return runKeyDelete(args[1:])
	default:
		return fmt.Errorf("unknown key subcommand %q", args[0])
	}
}

func runKeyCreate(args []string) error {
	fs := flag.NewFlagSet("key create", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	userID := fs.Int64("user-id", 0, "owning user ID (required)")
	description := fs.String("description", "", "key description")
	expiresIn := fs.Duration("expires-in", 0, "optional key lifetime (e.g. 720h)")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	_ = fs.Parse(args)

	if *userID == 0 {
		return fmt.Errorf("-user-id is required")
	}

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	input := service.CreateAccessKeyInput{
		UserID:      *userID,
		Description: *description,
	}
	if *expiresIn > 0 {
		expiresAt := time.Now().UTC().Add(*expiresIn)
		input.ExpiresAt = &expiresAt
	}

	out, err := e.iamService.CreateAccessKey(context.Background(), input)
	if err != nil {
		return err
	}

	if *asJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{
			"access_key_id": out.AccessKeyID,
			"secret_key":    out.SecretKey,
		})
	}

	fmt.Printf("Access Key ID: %s\n", out.AccessKeyID)
	fmt.Printf("Secret Key:    %s\n", out.SecretKey)
	fmt.Println("\nStore the secret key now. It cannot be retrieved again.")
	return nil
}

func runKeyList(args []string) error {
	fs := flag.NewFlagSet("key list", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	userID := fs.Int64("user-id", 0, "owning user ID (required)")
	_ = fs.Parse(args)

	if *userID == 0 {
		return fmt.Errorf("-user-id is required")
	}

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	keys, err := e.iamService.ListAccessKeys(context.Background(), service.ListAccessKeysInput{
		UserID: *userID,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCESS KEY ID\tSTATUS\tDESCRIPTION\tEXPIRES\tLAST USED")
	for _, k := range keys {
		expires := "-"
		if k.ExpiresAt != nil {
			expires = k.ExpiresAt.Format(time.RFC3339)
		}
		lastUsed := "never"
		if k.LastUsedAt != nil {
			lastUsed = k.LastUsedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			k.AccessKeyID, k.Status, k.Description, expires, lastUsed)
	}
	return w.Flush()
}

func runKeyRevoke(args []string) error {
	fs := flag.NewFlagSet("key revoke", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	accessKeyID := fs.String("access-key-id", "", "access key ID (required)")
	_ = fs.Parse(args)

	if *accessKeyID == "" {
		return fmt.Errorf("-access-key-id is required")
	}

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.iamService.DeactivateAccessKey(context.Background(), *accessKeyID); err != nil {
		return err
	}

	fmt.Printf("Access key %s revoked\n", *accessKeyID)
	return nil
}

func runKeyDelete(args []string) error {
	fs := flag.NewFlagSet("key delete", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	accessKeyID := fs.String("access-key-id", "", "access key ID (required)")
	_ = fs.Parse(args)

	if *accessKeyID == "" {
		return fmt.Errorf("-access-key-id is required")
	}

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.iamService.DeleteAccessKey(context.Background(), *accessKeyID); err != nil {
		return err
	}

	fmt.Printf("Access key %s deleted\n", *accessKeyID)
	return nil
}

// =============================================================================
// Utility Commands
// =============================================================================

func runKeygen() error {
	key, err := crypto.GenerateMasterKey()
	if err != nil {
		return err
	}
	fmt.Println(key)
	return nil
}

func runCleanup(args []string) error {
	fs := flag.NewFlagSet("cleanup", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	_ = fs.Parse(args)

	e, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer e.close()

	count, err := e.iamService.DeleteExpiredAccessKeys(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Deleted %d expired access key(s)\n", count)
	return nil
}
