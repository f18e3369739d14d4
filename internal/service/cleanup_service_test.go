package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alanjrogers/aws-s3/internal/lock"
)

func TestCleanupSweep(t *testing.T) {
	akRepo := new(mockAccessKeyRepo)
	userRepo := new(mockUserRepo)
	akRepo.On("DeleteExpired", mock.Anything).Return(int64(2), nil).Once()

	iam := newIAMService(t, akRepo, userRepo, nil, 0)
	svc := NewCleanupService(iam, lock.NewMemoryLocker(), time.Minute, zerolog.Nop())

	require.NoError(t, svc.Sweep(context.Background()))
	akRepo.AssertExpectations(t)
}

func TestCleanupSweepSkipsWhenLocked(t *testing.T) {
	akRepo := new(mockAccessKeyRepo)
	userRepo := new(mockUserRepo)

	locker := lock.NewMemoryLocker()
	acquired, err := locker.Acquire(context.Background(), "accesskey:cleanup", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	iam := newIAMService(t, akRepo, userRepo, nil, 0)
	svc := NewCleanupService(iam, locker, time.Minute, zerolog.Nop())

	// Another instance holds the lock, so nothing is deleted.
	require.NoError(t, svc.Sweep(context.Background()))
	akRepo.AssertNotCalled(t, "DeleteExpired", mock.Anything)
}
