// Package session authenticates against the prdesk API and carries the
// resulting identity explicitly. Nothing about the signed-in user is global.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/backoffice/prdesk/internal/client/transport"
	"github.com/backoffice/prdesk/internal/domain/identity"
	"github.com/backoffice/prdesk/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

var (
	// ErrSessionClosed is returned by a Session after Logout
	ErrSessionClosed = errors.New("session closed")
	// ErrNoSession is returned by Resume when there is no usable stored token
	ErrNoSession = errors.New("no saved session")
)

// User is the signed-in account
type User struct {
	ID       string
	Username string
	Email    string
	Role     identity.Role
}

// Actor returns the workflow identity of the user
func (u User) Actor() identity.Actor {
	return identity.Actor{UserID: u.ID, Role: u.Role}
}

// Authenticator creates sessions
type Authenticator struct {
	client *transport.Client
	store  TokenStore
	logger *zap.Logger
	now    func() time.Time
}

// Option configures an Authenticator
type Option func(*Authenticator)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(a *Authenticator) {
		a.logger = l
	}
}

// NewAuthenticator creates an Authenticator. A nil store keeps tokens in memory.
func NewAuthenticator(client *transport.Client, store TokenStore, opts ...Option) *Authenticator {
	if store == nil {
		store = NewMemoryTokenStore()
	}
	a := &Authenticator{client: client, store: store, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RegisterInput is a self-service account request
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     identity.Role
}

// Login signs in with email and password
func (a *Authenticator) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, transport.NewValidationError("email and password are required")
	}
	var resp dto.AuthResponse
	if err := a.client.Post(ctx, "/auth/login", dto.LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return a.start(resp)
}

// Register creates an account and signs it in
func (a *Authenticator) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if !in.Role.IsValid() {
		return nil, transport.NewValidationError("role must be SE or PA",
			transport.FieldError{Field: "role", Message: "must be SE or PA"})
	}
	req := dto.RegisterRequest{
		Username: strings.TrimSpace(in.Username),
		Email:    strings.TrimSpace(in.Email),
		Password: in.Password,
		Role:     in.Role.String(),
	}
	var resp dto.AuthResponse
	if err := a.client.Post(ctx, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return a.start(resp)
}

// Resume rebuilds the session of a stored token. A token the server no
// longer accepts is cleared.
func (a *Authenticator) Resume(ctx context.Context) (*Session, error) {
	tok, err := a.store.Load()
	if errors.Is(err, ErrNoToken) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	if tok.Expired(a.now()) {
		_ = a.store.Clear()
		return nil, fmt.Errorf("%w: token expired at %s", ErrNoSession, tok.ExpiresAt.Format(time.RFC3339))
	}

	client := a.client.WithToken(tok.AccessToken)
	var profile dto.UserResponse
	if err := client.Get(ctx, "/auth/profile", nil, &profile); err != nil {
		if errors.Is(err, transport.ErrUnauthorized) {
			_ = a.store.Clear()
			return nil, errors.Join(ErrNoSession, err)
		}
		return nil, err
	}
	return a.newSession(client, tok, userFromWire(profile)), nil
}

func (a *Authenticator) start(resp dto.AuthResponse) (*Session, error) {
	if resp.AccessToken == "" {
		return nil, &transport.APIError{Kind: transport.ErrServer, Detail: "login response carries no token"}
	}
	tok := StoredToken{
		AccessToken: resp.AccessToken,
		TokenType:   resp.TokenType,
		UserID:      resp.User.ID,
	}
	if exp, err := time.Parse(time.RFC3339, resp.ExpiresAt); err == nil {
		tok.ExpiresAt = exp
	}
	if err := a.store.Save(tok); err != nil {
		return nil, fmt.Errorf("saving token: %w", err)
	}
	user := userFromWire(resp.User)
	a.logger.Debug("Signed in", zap.String("user_id", user.ID), zap.String("role", user.Role.String()))
	return a.newSession(a.client.WithToken(tok.AccessToken), tok, user), nil
}

func (a *Authenticator) newSession(client *transport.Client, tok StoredToken, user User) *Session {
	return &Session{client: client, store: a.store, user: user, expiresAt: tok.ExpiresAt, logger: a.logger}
}

func userFromWire(u dto.UserResponse) User {
	role, _ := identity.ParseRole(u.Role)
	return User{ID: u.ID, Username: u.Username, Email: u.Email, Role: role}
}

// Session is one signed-in user. It is safe for concurrent use.
type Session struct {
	client    *transport.Client
	store     TokenStore
	user      User
	expiresAt time.Time
	logger    *zap.Logger

	mu     sync.Mutex
	closed bool
	hooks  []func()
}

// User returns the signed-in account
func (s *Session) User() User {
	return s.user
}

// ExpiresAt returns the token expiry, zero when unknown
func (s *Session) ExpiresAt() time.Time {
	return s.expiresAt
}

// Client returns the authenticated transport
func (s *Session) Client() (*transport.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.client, nil
}

// Do performs an authenticated call, failing with ErrSessionClosed after Logout
func (s *Session) Do(ctx context.Context, req transport.Request, out any) error {
	client, err := s.Client()
	if err != nil {
		return err
	}
	return client.Do(ctx, req, out)
}

// Closed reports whether Logout has run
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// OnClose registers fn to run at Logout. On a closed session fn runs at once.
func (s *Session) OnClose(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn()
		return
	}
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// Logout revokes the token on the server. The local token and every close
// hook are cleared even when that call fails, and the session is unusable
// afterwards.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.closed = true
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()

	callErr := s.client.Post(ctx, "/auth/logout", nil, nil)
	if callErr != nil {
		s.logger.Warn("Server logout failed; local session cleared anyway", zap.Error(callErr))
	}
	storeErr := s.store.Clear()
	for _, fn := range hooks {
		fn()
	}
	return errors.Join(callErr, storeErr)
}
