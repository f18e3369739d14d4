package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/alanjrogers/aws-s3/internal/lock"
)

const (
	// cleanupLockKey serializes the sweep across gateway instances.
	cleanupLockKey = "accesskey:cleanup"

	// cleanupLockTTL bounds how long a crashed instance holds the lock.
	cleanupLockTTL = 5 * time.Minute
)

// CleanupService periodically deletes expired access keys. The sweep runs
// under an advisory lock so only one gateway instance performs it.
type CleanupService struct {
	iamService *IAMService
	locker     lock.Locker
	interval   time.Duration
	logger     zerolog.Logger
}

// NewCleanupService creates a new CleanupService.
func NewCleanupService(iamService *IAMService, locker lock.Locker, interval time.Duration, logger zerolog.Logger) *CleanupService {
	return &CleanupService{
		iamService: iamService,
		locker:     locker,
		interval:   interval,
		logger:     logger.With().Str("service", "cleanup").Logger(),
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *CleanupService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("expired access key sweeper started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("expired access key sweeper stopped")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("cleanup sweep failed")
			}
		}
	}
}

// Sweep deletes expired access keys once, if the lock can be taken.
func (s *CleanupService) Sweep(ctx context.Context) error {
	acquired, err := lock.WithLock(ctx, s.locker, cleanupLockKey, cleanupLockTTL, func(ctx context.Context) error {
		_, err := s.iamService.DeleteExpiredAccessKeys(ctx)
		return err
	})
	if err != nil {
		return err
	}

	if !acquired {
		s.logger.Debug().Msg("cleanup sweep skipped, lock held elsewhere")
	}
	return nil
}
