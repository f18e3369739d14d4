// Package service provides business logic services for the aws-s3 gateway.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/alanjrogers/aws-s3/internal/auth"
	"github.com/alanjrogers/aws-s3/internal/domain"
	"github.com/alanjrogers/aws-s3/internal/pkg/crypto"
	"github.com/alanjrogers/aws-s3/internal/repository"
)

const (
	// MaxAccessKeysPerUser is the maximum number of access keys a user can have.
	MaxAccessKeysPerUser = 5

	// negativeCacheTTL bounds how long unknown access key IDs are remembered.
	negativeCacheTTL = 30 * time.Second
)

// IAMService handles access key management and signature-time key lookups.
type IAMService struct {
	accessKeyRepo repository.AccessKeyRepository
	userRepo      repository.UserRepository
	encryptor     *crypto.Encryptor
	cache         repository.Cache
	cacheTTL      time.Duration
	logger        zerolog.Logger
}

// NewIAMService creates a new IAMService.
// cache may be nil to disable access key caching.
func NewIAMService(
	accessKeyRepo repository.AccessKeyRepository,
	userRepo repository.UserRepository,
	encryptor *crypto.Encryptor,
	cache repository.Cache,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) *IAMService {
	return &IAMService{
		accessKeyRepo: accessKeyRepo,
		userRepo:      userRepo,
		encryptor:     encryptor,
		cache:         cache,
		cacheTTL:      cacheTTL,
		logger:        logger.With().Str("service", "iam").Logger(),
	}
}

// CreateAccessKeyInput contains the data needed to create an access key.
type CreateAccessKeyInput struct {
	UserID      int64
	Description string
	ExpiresAt   *time.Time
}

// CreateAccessKeyOutput contains the result of creating an access key.
// Note: SecretKey is only available at creation time and should be shown to the user once.
type CreateAccessKeyOutput struct {
	AccessKeyID string
	SecretKey   string // Plaintext - only shown once!
	AccessKey   *domain.AccessKey
}

// CreateAccessKey creates a new access key for a user.
func (s *IAMService) CreateAccessKey(ctx context.Context, input CreateAccessKeyInput) (*CreateAccessKeyOutput, error) {
	// Verify user exists and is active
	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", input.UserID).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// Check max access keys limit
	existingKeys, err := s.accessKeyRepo.ListByUserID(ctx, input.UserID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", input.UserID).Msg("failed to list user access keys")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	activeCount := 0
	for _, key := range existingKeys {
		if key.Status == domain.AccessKeyStatusActive {
			activeCount++
		}
	}

	if activeCount >= MaxAccessKeysPerUser {
		return nil, ErrMaxAccessKeysReached
	}

	// Generate access key pair
	accessKeyID, secretKey, err := crypto.GenerateAccessKeyPair()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to generate access key pair")
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	// Encrypt secret key
	encryptedSecret, err := s.encryptor.EncryptString(secretKey)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encrypt secret key")
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	accessKey := domain.NewAccessKey(input.UserID, accessKeyID, encryptedSecret)
	accessKey.Description = input.Description
	accessKey.ExpiresAt = input.ExpiresAt

	if err := s.accessKeyRepo.Create(ctx, accessKey); err != nil {
		s.logger.Error().Err(err).Str("access_key_id", accessKeyID).Msg("failed to create access key")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", input.UserID).
		Str("access_key_id", accessKeyID).
		Msg("access key created")

	return &CreateAccessKeyOutput{
		AccessKeyID: accessKeyID,
		SecretKey:   secretKey, // Only time this is returned!
		AccessKey:   accessKey,
	}, nil
}

// GetAccessKey retrieves an access key by ID.
func (s *IAMService) GetAccessKey(ctx context.Context, accessKeyID string) (*domain.AccessKey, error) {
	key, err := s.accessKeyRepo.GetByAccessKeyID(ctx, accessKeyID)
	if err != nil {
		if errors.Is(err, domain.ErrAccessKeyNotFound) {
			return nil, ErrAccessKeyNotFound
		}
		s.logger.Error().Err(err).Str("access_key_id", accessKeyID).Msg("failed to get access key")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return key, nil
}

// ListAccessKeysInput contains filters for listing access keys.
type ListAccessKeysInput struct {
	UserID     int64
	ActiveOnly bool
}

// ListAccessKeys returns all access keys for a user.
func (s *IAMService) ListAccessKeys(ctx context.Context, input ListAccessKeysInput) ([]*domain.AccessKey, error) {
	keys, err := s.accessKeyRepo.ListByUserID(ctx, input.UserID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", input.UserID).Msg("failed to list access keys")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if input.ActiveOnly {
		activeKeys := make([]*domain.AccessKey, 0)
		for _, key := range keys {
			if key.IsValid() {
				activeKeys = append(activeKeys, key)
			}
		}
		return activeKeys, nil
	}

	return keys, nil
}

// DeactivateAccessKey deactivates an access key (soft delete).
func (s *IAMService) DeactivateAccessKey(ctx context.Context, accessKeyID string) error {
	return s.setAccessKeyStatus(ctx, accessKeyID, domain.AccessKeyStatusInactive)
}

// ActivateAccessKey activates a previously deactivated access key.
func (s *IAMService) ActivateAccessKey(ctx context.Context, accessKeyID string) error {
	return s.setAccessKeyStatus(ctx, accessKeyID, domain.AccessKeyStatusActive)
}

func (s *IAMService) setAccessKeyStatus(ctx context.Context, accessKeyID string, status domain.AccessKeyStatus) error {
	key, err := s.accessKeyRepo.GetByAccessKeyID(ctx, accessKeyID)
	if err != nil {
		if errors.Is(err, domain.ErrAccessKeyNotFound) {
			return ErrAccessKeyNotFound
		}
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	key.Status = status

	if err := s.accessKeyRepo.Update(ctx, key); err != nil {
		s.logger.Error().Err(err).Str("access_key_id", accessKeyID).Msg("failed to update access key status")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.invalidateCached(ctx, accessKeyID)

	s.logger.Info().
		Str("access_key_id", accessKeyID).
		Int64("user_id", key.UserID).
		Str("status", string(status)).
		Msg("access key status updated")

	return nil
}

// DeleteAccessKey permanently deletes an access key.
func (s *IAMService) DeleteAccessKey(ctx context.Context, accessKeyID string) error {
	if err := s.accessKeyRepo.DeleteByAccessKeyID(ctx, accessKeyID); err != nil {
		if errors.Is(err, domain.ErrAccessKeyNotFound) {
			return ErrAccessKeyNotFound
		}
		s.logger.Error().Err(err).Str("access_key_id", accessKeyID).Msg("failed to delete access key")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.invalidateCached(ctx, accessKeyID)

	s.logger.Info().Str("access_key_id", accessKeyID).Msg("access key deleted")
	return nil
}

// DeleteExpiredAccessKeys deletes all expired access keys (cleanup job).
func (s *IAMService) DeleteExpiredAccessKeys(ctx context.Context) (int64, error) {
	count, err := s.accessKeyRepo.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to delete expired access keys")
		return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if count > 0 {
		s.logger.Info().Int64("count", count).Msg("deleted expired access keys")
	}

	return count, nil
}

// VerifyAccessKey verifies an access key is valid and returns the decrypted secret.
// This is used by the auth middleware on every signed request, so results are
// cached when a cache is configured. The cached entry holds the decrypted
// secret and is invalidated on any key state change.
func (s *IAMService) VerifyAccessKey(ctx context.Context, accessKeyID string) (*auth.AccessKeyInfo, error) {
	if info, ok := s.cachedAccessKey(ctx, accessKeyID); ok {
		if info == nil {
			return nil, ErrAccessKeyNotFound
		}
		return info, nil
	}

	key, err := s.accessKeyRepo.GetActiveByAccessKeyID(ctx, accessKeyID)
	if err != nil {
		if errors.Is(err, domain.ErrAccessKeyNotFound) {
			s.cacheNegative(ctx, accessKeyID)
			return nil, ErrAccessKeyNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if !key.IsValid() {
		if key.Status != domain.AccessKeyStatusActive {
			return nil, ErrAccessKeyInactive
		}
		return nil, ErrAccessKeyExpired
	}

	secretKey, err := s.encryptor.DecryptString(key.EncryptedSecret)
	if err != nil {
		s.logger.Error().Err(err).Str("access_key_id", accessKeyID).Msg("failed to decrypt secret key")
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	// The key is only as good as its owner; a failed owner lookup rejects
	// the key rather than letting it authenticate without the user checks.
	user, err := s.userRepo.GetByID(ctx, key.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", key.UserID).Str("access_key_id", accessKeyID).Msg("failed to get key owner")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !user.CanAuthenticate() {
		return nil, ErrUserInactive
	}

	info := &auth.AccessKeyInfo{
		AccessKeyID: key.AccessKeyID,
		SecretKey:   secretKey,
		UserID:      key.UserID,
		Username:    user.Username,
		IsActive:    key.Status == domain.AccessKeyStatusActive,
		ExpiresAt:   key.ExpiresAt,
	}

	s.cacheAccessKey(ctx, info)

	return info, nil
}

// UpdateLastUsed updates the last used timestamp for an access key.
func (s *IAMService) UpdateLastUsed(ctx context.Context, accessKeyID string) error {
	key, err := s.accessKeyRepo.GetByAccessKeyID(ctx, accessKeyID)
	if err != nil {
		return err // Silent fail for async updates
	}

	return s.accessKeyRepo.UpdateLastUsed(ctx, key.ID)
}

// =============================================================================
// Access Key Cache
// =============================================================================

// cachedAccessKey returns (info, true) on a positive hit, (nil, true) on a
// remembered miss and (nil, false) when the cache has no answer.
func (s *IAMService) cachedAccessKey(ctx context.Context, accessKeyID string) (*auth.AccessKeyInfo, bool) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return nil, false
	}

	keys := repository.CacheKey{}

	if data, err := s.cache.Get(ctx, keys.AccessKey(accessKeyID)); err == nil {
		var info auth.AccessKeyInfo
		if err := json.Unmarshal(data, &info); err == nil {
			return &info, true
		}
		// Corrupt entry, drop it.
		_ = s.cache.Delete(ctx, keys.AccessKey(accessKeyID))
	}

	if exists, err := s.cache.Exists(ctx, keys.NegativeAccessKey(accessKeyID)); err == nil && exists {
		return nil, true
	}

	return nil, false
}

func (s *IAMService) cacheAccessKey(ctx context.Context, info *auth.AccessKeyInfo) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}

	data, err := json.Marshal(info)
	if err != nil {
		return
	}

	ttl := s.cacheTTL
	if info.ExpiresAt != nil {
		if remaining := time.Until(*info.ExpiresAt); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl <= 0 {
		return
	}

	if err := s.cache.Set(ctx, repository.CacheKey{}.AccessKey(info.AccessKeyID), data, ttl); err != nil {
		s.logger.Debug().Err(err).Msg("failed to cache access key")
	}
}

func (s *IAMService) cacheNegative(ctx context.Context, accessKeyID string) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}

	ttl := negativeCacheTTL
	if s.cacheTTL < ttl {
		ttl = s.cacheTTL
	}

	_ = s.cache.Set(ctx, repository.CacheKey{}.NegativeAccessKey(accessKeyID), []byte{1}, ttl)
}

func (s *IAMService) invalidateCached(ctx context.Context, accessKeyID string) {
	if s.cache == nil {
		return
	}

	keys := repository.CacheKey{}
	_ = s.cache.Delete(ctx, keys.AccessKey(accessKeyID))
	_ = s.cache.Delete(ctx, keys.NegativeAccessKey(accessKeyID))
}

// AccessKeyStoreAdapter adapts IAMService to implement auth.AccessKeyStore.
type AccessKeyStoreAdapter struct {
	iamService *IAMService
}

// NewAccessKeyStoreAdapter creates a new adapter.
func NewAccessKeyStoreAdapter(iamService *IAMService) *AccessKeyStoreAdapter {
	return &AccessKeyStoreAdapter{iamService: iamService}
}

// GetActiveAccessKey implements auth.AccessKeyStore.
func (a *AccessKeyStoreAdapter) GetActiveAccessKey(ctx context.Context, accessKeyID string) (*auth.AccessKeyInfo, error) {
	return a.iamService.VerifyAccessKey(ctx, accessKeyID)
}

// UpdateLastUsed implements auth.AccessKeyStore.
func (a *AccessKeyStoreAdapter) UpdateLastUsed(ctx context.Context, accessKeyID string) error {
	return a.iamService.UpdateLastUsed(ctx, accessKeyID)
}

// Ensure AccessKeyStoreAdapter implements auth.AccessKeyStore
var _ auth.AccessKeyStore = (*AccessKeyStoreAdapter)(nil)
