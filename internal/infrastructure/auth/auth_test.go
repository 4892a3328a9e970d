package auth

import (
	"context"
	"testing"
	"time"

	"github.com/backoffice/prdesk/internal/domain/identity"
	"github.com/backoffice/prdesk/internal/domain/shared"
	"github.com/backoffice/prdesk/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *identity.User {
	return &identity.User{
		BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: shared.BaseEntity{ID: "user-1"}},
		Username:          "alice",
		Role:              identity.RolePricingAnalyst,
	}
}

func newService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-0123456789abcdef0123",
		AccessTokenExpiration: time.Hour,
		Issuer:                "prdesk-test",
	})
}

// ============================================
// JWT
// ============================================

func TestJWTService_IssueAndValidate(t *testing.T) {
	svc := newService()

	tok, err := svc.Issue(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, tok.AccessToken)

	claims, err := svc.Validate(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, identity.Actor{UserID: "user-1", Role: identity.RolePricingAnalyst}, claims.Actor())
	assert.NotEmpty(t, claims.ID)
	assert.InDelta(t, time.Hour.Seconds(), claims.RemainingTTL().Seconds(), 5)
}

func TestJWTService_Validate_Failures(t *testing.T) {
	svc := newService()
	tok, err := svc.Issue(testUser())
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := newService()
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Validate(tok.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{Secret: "another-secret", AccessTokenExpiration: time.Hour, Issuer: "prdesk-test"})
		_, err := other.Validate(tok.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{Secret: "test-secret-0123456789abcdef0123", AccessTokenExpiration: time.Hour, Issuer: "someone-else"})
		_, err := other.Validate(tok.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Validate("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing role", func(t *testing.T) {
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        "jti",
				Issuer:    "prdesk-test",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			UserID: "user-1",
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.secret)
		require.NoError(t, err)

		_, err = svc.Validate(signed)
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})
}

// ============================================
// Blacklist
// ============================================

func TestInMemoryTokenBlacklist(t *testing.T) {
	ctx := context.Background()
	b := NewInMemoryTokenBlacklist()

	require.NoError(t, b.Revoke(ctx, "jti-1", time.Hour))
	require.NoError(t, b.Revoke(ctx, "jti-short", time.Millisecond))
	require.NoError(t, b.Revoke(ctx, "jti-expired", 0))

	revoked, err := b.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	time.Sleep(5 * time.Millisecond)
	revoked, err = b.IsRevoked(ctx, "jti-short")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = b.IsRevoked(ctx, "jti-expired")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisTokenBlacklist_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	b := NewRedisTokenBlacklistWithClient(client)
	defer b.Close()

	err := b.Revoke(context.Background(), "jti", time.Minute)
	assert.ErrorContains(t, err, "failed to revoke token")

	_, err = b.IsRevoked(context.Background(), "jti")
	assert.ErrorContains(t, err, "failed to check token blacklist")

	_, err = NewRedisTokenBlacklist(context.Background(), config.RedisConfig{Host: "127.0.0.1", Port: 1})
	assert.Error(t, err)
}
