// Package main is the entry point for the aws-s3 gateway server.
// The gateway verifies legacy AWS signature requests and proxies
// authenticated traffic to a protected upstream.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/alanjrogers/aws-s3/internal/auth"
	"github.com/alanjrogers/aws-s3/internal/cache/memory"
	"github.com/alanjrogers/aws-s3/internal/cache/redis"
	"github.com/alanjrogers/aws-s3/internal/config"
	"github.com/alanjrogers/aws-s3/internal/handler"
	"github.com/alanjrogers/aws-s3/internal/lock"
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
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	logger := buildLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting aws-s3 gateway")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("gateway exited with error")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	repos, dbHealth, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer dbHealth.Close()

	// Cache
	cache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer cache.Close()

	// Encryption
	encryptionKey, err := cfg.Auth.GetEncryptionKey()
	if err != nil {
		return fmt.Errorf("invalid encryption key: %w", err)
	}
	encryptor, err := crypto.NewEncryptor(encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to create encryptor: %w", err)
	}

	// Services
	userService := service.NewUserService(repos.User, logger)
	iamService := service.NewIAMService(repos.AccessKey, repos.User, encryptor, cache, cfg.Auth.CacheTTL, logger)
	presignService := service.NewPresignService(iamService, service.PresignConfig{
		DefaultExpiry: cfg.Auth.PresignExpiry,
		Endpoint:      cfg.Auth.Endpoint,
	}, logger)

	// Background sweep of expired access keys
	if cfg.Auth.CleanupInterval > 0 {
		cleanupService := service.NewCleanupService(
			iamService,
			lock.NewCacheLocker(cache),
			cfg.Auth.CleanupInterval,
			logger,
		)
		go cleanupService.Run(ctx)
	}

	// HTTP surface
	proxyHandler, err := handler.NewProxyHandler(cfg.Upstream.URL, cfg.Upstream.StripAuth, logger)
	if err != nil {
		return fmt.Errorf("failed to create proxy: %w", err)
	}

	adminHandler := handler.NewAdminHandler(handler.AdminConfig{
		UserService:    userService,
		IAMService:     iamService,
		PresignService: presignService,
		Logger:         logger,
	})

	var metrics *handler.Metrics
	if cfg.Metrics.Enabled {
		metrics = handler.NewMetrics()
	}

	authMiddleware := auth.Middleware(
		service.NewAccessKeyStoreAdapter(iamService),
		auth.Config{
			AllowAnonymous: cfg.Auth.AllowAnonymous,
			SkipPaths:      cfg.Auth.SkipPaths,
		},
	)

	router := handler.NewRouter(handler.RouterConfig{
		AdminHandler:   adminHandler,
		ProxyHandler:   proxyHandler,
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
		DBHealth:       dbHealth,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Str("upstream", cfg.Upstream.URL).
			Msg("gateway listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down gateway")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info().Msg("gateway stopped")
	return nil
}

// openRepositories connects to the configured database backend, runs
// migrations, and returns the repository set.
func openRepositories(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*repository.Repositories, repository.DatabaseHealth, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:            cfg.Database.Path,
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: time.Hour,
			JournalMode:     cfg.Database.JournalMode,
			BusyTimeout:     cfg.Database.BusyTimeout,
			SynchronousMode: "NORMAL",
		}, logger)
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

// openCache returns the configured cache backend: Redis when enabled,
// in-process memory otherwise.
func openCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.Cache, error) {
	if cfg.Redis.Enabled {
		return redis.NewCache(ctx, cfg.Redis, logger)
	}
	return memory.NewCache(), nil
}

// buildLogger constructs the process logger from configuration.
func buildLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = cfg.TimeFormat

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}

	return logger.Level(level).With().Timestamp().Logger()
}
