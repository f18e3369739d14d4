// Package repository defines data access interfaces for the aws-s3 gateway.
// These interfaces abstract database operations, allowing for different
// implementations (SQLite, PostgreSQL, mocks for testing) while keeping the
// service layer clean.
package repository

import (
	"context"

	"github.com/alanjrogers/aws-s3/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update updates an existing user.
	Update(ctx context.Context, user *domain.User) error

	// Delete deletes a user by ID.
	Delete(ctx context.Context, id int64) error

	// List returns all users with pagination.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.User], error)

	// ExistsByUsername checks if a user with the given username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail checks if a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// =============================================================================
// Access Key Repository
// =============================================================================

// AccessKeyRepository defines the interface for access key data access.
type AccessKeyRepository interface {
	// Create creates a new access key.
	Create(ctx context.Context, key *domain.AccessKey) error

	// GetByID retrieves an access key by ID.
	GetByID(ctx context.Context, id int64) (*domain.AccessKey, error)

	// GetByAccessKeyID retrieves an access key by access key ID (the 20-char identifier).
	GetByAccessKeyID(ctx context.Context, accessKeyID string) (*domain.AccessKey, error)

	// GetActiveByAccessKeyID retrieves an active, non-expired access key.
	// This is the primary method used for signature verification.
	GetActiveByAccessKeyID(ctx context.Context, accessKeyID string) (*domain.AccessKey, error)

	// ListByUserID returns all access keys for a user.
	ListByUserID(ctx context.Context, userID int64) ([]*domain.AccessKey, error)

	// Update updates an existing access key.
	Update(ctx context.Context, key *domain.AccessKey) error

	// UpdateLastUsed updates the last_used_at timestamp.
	UpdateLastUsed(ctx context.Context, id int64) error

	// Delete deletes an access key by ID.
	Delete(ctx context.Context, id int64) error

	// DeleteByAccessKeyID deletes an access key by access key ID.
	DeleteByAccessKeyID(ctx context.Context, accessKeyID string) error

	// DeleteExpired deletes all expired access keys.
	DeleteExpired(ctx context.Context) (int64, error)
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains common pagination options.
type ListOptions struct {
	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return.
	Limit int
}

// ListResult is a generic paginated list result.
type ListResult[T any] struct {
	// Items is the list of items.
	Items []*T

	// Total is the total number of items (without pagination).
	Total int64

	// Offset is the current offset.
	Offset int

	// Limit is the current limit.
	Limit int
}
