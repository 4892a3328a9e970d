package identity

import (
	"time"

	"github.com/backoffice/prdesk/internal/domain/identity"
)

// RegisterInput is a self-service account request
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// LoginInput contains login credentials
type LoginInput struct {
	Email    string
	Password string
}

// UserInfo is the public view of a user
type UserInfo struct {
	ID       string
	Username string
	Email    string
	Role     identity.Role
}

// AuthResult is returned by Register and Login
type AuthResult struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	User        UserInfo
}

// ToUserInfo converts a domain user
func ToUserInfo(u *identity.User) UserInfo {
	return UserInfo{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}
