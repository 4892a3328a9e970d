package identity

import (
	"errors"
	"testing"

	"github.com/backoffice/prdesk/internal/domain/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		u, err := NewUser(" alice ", "Alice@Example.com", "secret1", RoleSalesExecutive)
		require.NoError(t, err)

		assert.NotEmpty(t, u.ID)
		assert.Equal(t, "alice", u.Username)
		assert.Equal(t, "alice@example.com", u.Email)
		assert.NotEqual(t, "secret1", u.PasswordHash)
		assert.True(t, u.VerifyPassword("secret1"))
		assert.False(t, u.VerifyPassword("secret2"))
		assert.Equal(t, Actor{UserID: u.ID, Role: RoleSalesExecutive}, u.Actor())
		assert.Equal(t, 1, u.Version)
	})

	tests := []struct {
		name     string
		username string
		email    string
		password string
		role     Role
		code     string
	}{
		{"short username", "a", "a@b.co", "secret1", RolePricingAnalyst, "INVALID_USERNAME"},
		{"bad email", "bob", "bob-at-example", "secret1", RolePricingAnalyst, "INVALID_EMAIL"},
		{"short password", "bob", "bob@example.com", "123", RolePricingAnalyst, "INVALID_PASSWORD"},
		{"bad role", "bob", "bob@example.com", "secret1", Role("ADMIN"), "INVALID_ROLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUser(tt.username, tt.email, tt.password, tt.role)
			require.Error(t, err)
			assert.Equal(t, tt.code, errCode(err))
		})
	}
}

func TestUser_RecordLogin(t *testing.T) {
	u, err := NewUser("carol", "carol@example.com", "secret1", RolePricingAnalyst)
	require.NoError(t, err)

	u.RecordLogin()

	require.NotNil(t, u.LastLoginAt)
	assert.Equal(t, *u.LastLoginAt, u.UpdatedAt)
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"SE", RoleSalesExecutive, true},
		{"se", RoleSalesExecutive, true},
		{"SALES_EXECUTIVE", RoleSalesExecutive, true},
		{"pricing analyst", RolePricingAnalyst, true},
		{"PA", RolePricingAnalyst, true},
		{"admin", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRole(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "Pricing Analyst", RolePricingAnalyst.DisplayName())
	assert.True(t, Actor{Role: RoleSalesExecutive}.IsSales())
	assert.True(t, Actor{Role: RolePricingAnalyst}.IsAnalyst())
}

func errCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
