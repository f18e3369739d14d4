// Package main is the entry point for the aws-s3 schema migration tool.
// It applies the credential store schema to the configured database backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/alanjrogers/aws-s3/internal/config"
	"github.com/alanjrogers/aws-s3/internal/repository/postgres"
	"github.com/alanjrogers/aws-s3/internal/repository/sqlite"
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
	case "up":
		err = runUp(os.Args[2:])
	case "version":
		fmt.Printf("aws-s3 migration tool\nVersion: %s\nBuild Time: %s\nGit Commit: %s\n",
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
	fmt.Println(`aws-s3 migration tool

Usage:
  aws-s3-migrate <command> [arguments]

Commands:
  up        Apply all pending migrations
  version   Print version information
  help      Show this help message

The database backend is taken from the configuration file (-config) or
the AWSS3_DATABASE_* environment variables.`)
}

func runUp(args []string) error {
	fs := flag.NewFlagSet("up", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	ctx := context.Background()

	switch cfg.Database.Driver {
	case "sqlite":
		sqliteCfg := sqlite.DefaultConfig(cfg.Database.Path)
		sqliteCfg.JournalMode = cfg.Database.JournalMode
		sqliteCfg.BusyTimeout = cfg.Database.BusyTimeout

		db, err := sqlite.NewDB(ctx, sqliteCfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	fmt.Println("Migrations applied")
	return nil
}
