// Package repository defines data access interfaces for the aws-s3 gateway.
package repository

import (
	"context"
	"strconv"
	"time"
)

// =============================================================================
// Cache Interface
// =============================================================================

// Cache defines the interface for caching verified access keys and other
// hot lookups. Implemented by an in-process cache for single-node deployments
// and by Redis for distributed ones.
type Cache interface {
	// Get retrieves a value by key.
	// Returns ErrCacheMiss if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with an optional TTL.
	// If ttl is 0, the value doesn't expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX sets a value only if the key doesn't exist.
	// Returns true if the value was set, false if the key already exists.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists.
	Exists(ctx context.Context, key string) (bool, error)

	// Expire sets or updates the TTL for a key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Close releases any resources held by the cache.
	Close() error
}

// =============================================================================
// Common Cache Keys
// =============================================================================

// CacheKey generates cache keys for common scenarios.
type CacheKey struct{}

// AccessKey returns a cache key for access key metadata.
func (CacheKey) AccessKey(accessKeyID string) string {
	return "cache:accesskey:" + accessKeyID
}

// NegativeAccessKey returns a cache key for remembered lookup failures.
// Short-lived negative entries shield the database from repeated probes
// with unknown key IDs.
func (CacheKey) NegativeAccessKey(accessKeyID string) string {
	return "cache:accesskey:miss:" + accessKeyID
}

// UserByID returns a cache key for user metadata.
func (CacheKey) UserByID(id int64) string {
	return "cache:user:id:" + strconv.FormatInt(id, 10)
}
