// Package repository provides the data access layer for the aws-s3 gateway.
// This file contains the factory used to describe repository backends; the
// concrete constructors live in the sqlite and postgres subpackages to avoid
// an import cycle with this package's interfaces.
package repository

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/alanjrogers/aws-s3/internal/config"
)

// Repositories holds all repository instances.
type Repositories struct {
	User      UserRepository
	AccessKey AccessKeyRepository
}

// DatabaseHealth is an interface for database health checks.
// Both the sqlite and postgres DB wrappers satisfy it.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error
}

// Factory describes the configured repository backend.
type Factory struct {
	cfg    config.DatabaseConfig
	logger zerolog.Logger
}

// NewFactory creates a new repository factory.
func NewFactory(cfg config.DatabaseConfig, logger zerolog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// Driver returns the configured database driver.
func (f *Factory) Driver() string {
	return f.cfg.Driver
}

// IsEmbedded returns true if using an embedded database.
func (f *Factory) IsEmbedded() bool {
	return f.cfg.IsEmbedded()
}
