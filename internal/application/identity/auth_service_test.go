package identity

import (
	"context"
	"testing"
	"time"

	"github.com/backoffice/prdesk/internal/domain/identity"
	"github.com/backoffice/prdesk/internal/domain/shared"
	"github.com/backoffice/prdesk/internal/infrastructure/auth"
	"github.com/backoffice/prdesk/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *identity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func newTestAuthService() (*AuthService, *MockUserRepository, *auth.JWTService, *auth.InMemoryTokenBlacklist) {
	repo := new(MockUserRepository)
	jwtSvc := auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-that-is-long-enough-for-hs256",
		AccessTokenExpiration: time.Hour,
		Issuer:                "prdesk-test",
	})
	blacklist := auth.NewInMemoryTokenBlacklist()
	return NewAuthService(repo, jwtSvc, blacklist, nil), repo, jwtSvc, blacklist
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		svc, repo, jwtSvc, _ := newTestAuthService()
		repo.On("ExistsByEmail", ctx, "ana@example.com").Return(false, nil)
		repo.On("Create", ctx, mock.AnythingOfType("*identity.User")).Return(nil)

		res, err := svc.Register(ctx, RegisterInput{Username: "Ana", Email: "Ana@Example.com", Password: "secret1", Role: "PA"})

		require.NoError(t, err)
		assert.Equal(t, TokenTypeBearer, res.TokenType)
		assert.Equal(t, identity.RolePricingAnalyst, res.User.Role)
		assert.Equal(t, "ana@example.com", res.User.Email)

		claims, err := jwtSvc.Validate(res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, res.User.ID, claims.UserID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc, repo, _, _ := newTestAuthService()
		repo.On("ExistsByEmail", ctx, "ana@example.com").Return(true, nil)

		_, err := svc.Register(ctx, RegisterInput{Username: "Ana", Email: "ana@example.com", Password: "secret1", Role: "SE"})

		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("bad role", func(t *testing.T) {
		svc, _, _, _ := newTestAuthService()
		_, err := svc.Register(ctx, RegisterInput{Username: "Ana", Email: "ana@example.com", Password: "secret1", Role: "admin"})

		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "INVALID_ROLE", de.Code)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	user, err := identity.NewUser("Sam", "sam@example.com", "secret1", identity.RoleSalesExecutive)
	require.NoError(t, err)

	t.Run("success records login", func(t *testing.T) {
		svc, repo, _, _ := newTestAuthService()
		repo.On("FindByEmail", ctx, "sam@example.com").Return(user, nil)
		repo.On("Update", ctx, user).Return(nil)

		res, err := svc.Login(ctx, LoginInput{Email: " SAM@example.com ", Password: "secret1"})

		require.NoError(t, err)
		assert.Equal(t, user.ID, res.User.ID)
		assert.NotNil(t, user.LastLoginAt)
		repo.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, repo, _, _ := newTestAuthService()
		repo.On("FindByEmail", ctx, "sam@example.com").Return(user, nil)

		_, err := svc.Login(ctx, LoginInput{Email: "sam@example.com", Password: "nope123"})
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc, repo, _, _ := newTestAuthService()
		repo.On("FindByEmail", ctx, "who@example.com").Return(nil, shared.ErrNotFound)

		_, err := svc.Login(ctx, LoginInput{Email: "who@example.com", Password: "secret1"})
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})

	t.Run("failed stamp does not block login", func(t *testing.T) {
		svc, repo, _, _ := newTestAuthService()
		repo.On("FindByEmail", ctx, "sam@example.com").Return(user, nil)
		repo.On("Update", ctx, user).Return(shared.ErrConcurrencyConflict)

		_, err := svc.Login(ctx, LoginInput{Email: "sam@example.com", Password: "secret1"})
		assert.NoError(t, err)
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	svc, _, jwtSvc, blacklist := newTestAuthService()
	user, err := identity.NewUser("Sam", "sam@example.com", "secret1", identity.RoleSalesExecutive)
	require.NoError(t, err)
	token, err := jwtSvc.Issue(user)
	require.NoError(t, err)
	claims, err := jwtSvc.Validate(token.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, claims))

	revoked, err := blacklist.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestAuthService_Profile(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newTestAuthService()
	user, err := identity.NewUser("Sam", "sam@example.com", "secret1", identity.RoleSalesExecutive)
	require.NoError(t, err)
	repo.On("FindByID", ctx, user.ID).Return(user, nil)
	repo.On("FindByID", ctx, "gone").Return(nil, shared.ErrNotFound)

	info, err := svc.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sam", info.Username)

	_, err = svc.Profile(ctx, "gone")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
