package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alanjrogers/aws-s3/internal/domain"
	"github.com/alanjrogers/aws-s3/internal/repository"
)

func newUserService(userRepo repository.UserRepository) *UserService {
	return NewUserService(userRepo, zerolog.Nop())
}

func TestUserCreate(t *testing.T) {
	userRepo := new(mockUserRepo)
	userRepo.On("ExistsByUsername", mock.Anything, "johnsmith").Return(false, nil)
	userRepo.On("ExistsByEmail", mock.Anything, "john@example.com").Return(false, nil)
	userRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	svc := newUserService(userRepo)

	out, err := svc.Create(context.Background(), CreateUserInput{
		Username: "johnsmith",
		Email:    "john@example.com",
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)
	require.Equal(t, "johnsmith", out.User.Username)
	require.True(t, out.User.IsActive)
	require.False(t, out.User.IsAdmin)

	// Password is stored hashed, never verbatim.
	require.NotEqual(t, "correct-horse-battery", out.User.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword(
		[]byte(out.User.PasswordHash), []byte("correct-horse-battery")))
}

func TestUserCreateDuplicateUsername(t *testing.T) {
	userRepo := new(mockUserRepo)
	userRepo.On("ExistsByUsername", mock.Anything, "johnsmith").Return(true, nil)

	svc := newUserService(userRepo)

	_, err := svc.Create(context.Background(), CreateUserInput{
		Username: "johnsmith",
		Email:    "john@example.com",
		Password: "correct-horse-battery",
	})
	require.ErrorIs(t, err, ErrUserAlreadyExists)
	userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUserCreateValidation(t *testing.T) {
	svc := newUserService(new(mockUserRepo))
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateUserInput{Username: "ab", Email: "a@b.com", Password: "longenough"})
	require.ErrorIs(t, err, ErrInvalidUsername)

	_, err = svc.Create(ctx, CreateUserInput{Username: "valid", Email: "not-an-email", Password: "longenough"})
	require.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Create(ctx, CreateUserInput{Username: "valid", Email: "a@b.com", Password: "short"})
	require.ErrorIs(t, err, ErrInvalidPassword)
}

func TestUserAuthenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	user := domain.NewUser("johnsmith", "john@example.com", string(hash))
	user.ID = 7

	userRepo := new(mockUserRepo)
	userRepo.On("GetByUsername", mock.Anything, "johnsmith").Return(user, nil)

	svc := newUserService(userRepo)
	ctx := context.Background()

	got, err := svc.Authenticate(ctx, "johnsmith", "hunter2hunter2")
	require.NoError(t, err)
	require.Equal(t, int64(7), got.ID)

	_, err = svc.Authenticate(ctx, "johnsmith", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserAuthenticateUnknownUser(t *testing.T) {
	userRepo := new(mockUserRepo)
	userRepo.On("GetByUsername", mock.Anything, "ghost").Return(nil, domain.ErrUserNotFound)

	svc := newUserService(userRepo)

	// Unknown usernames and bad passwords are indistinguishable to callers.
	_, err := svc.Authenticate(context.Background(), "ghost", "whatever")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserAuthenticateInactive(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	user := domain.NewUser("johnsmith", "john@example.com", string(hash))
	user.IsActive = false

	userRepo := new(mockUserRepo)
	userRepo.On("GetByUsername", mock.Anything, "johnsmith").Return(user, nil)

	svc := newUserService(userRepo)

	_, err = svc.Authenticate(context.Background(), "johnsmith", "hunter2hunter2")
	require.ErrorIs(t, err, ErrUserInactive)
}

func TestUserSetActive(t *testing.T) {
	user := activeUser(3)

	userRepo := new(mockUserRepo)
	userRepo.On("GetByID", mock.Anything, int64(3)).Return(user, nil)
	userRepo.On("Update", mock.Anything, user).Return(nil)

	svc := newUserService(userRepo)

	require.NoError(t, svc.SetActive(context.Background(), 3, false))
	require.False(t, user.IsActive)
	userRepo.AssertExpectations(t)
}

func TestUserList(t *testing.T) {
	userRepo := new(mockUserRepo)
	userRepo.On("List", mock.Anything, repository.ListOptions{Limit: 20, Offset: 0}).
		Return(&repository.ListResult[domain.User]{
			Items: []*domain.User{activeUser(1), activeUser(2)},
			Total: 2,
		}, nil)

	svc := newUserService(userRepo)

	// Zero limit falls back to the default page size.
	out, err := svc.List(context.Background(), ListUsersInput{})
	require.NoError(t, err)
	require.Len(t, out.Users, 2)
	require.Equal(t, int64(2), out.TotalCount)
}
