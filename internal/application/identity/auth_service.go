package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/backoffice/prdesk/internal/domain/identity"
	"github.com/backoffice/prdesk/internal/domain/shared"
	"github.com/backoffice/prdesk/internal/infrastructure/auth"
	"github.com/backoffice/prdesk/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// TokenTypeBearer is the token_type of every issued token
const TokenTypeBearer = "bearer"

var errInvalidCredentials = shared.NewDomainError(shared.CodeUnauthorized, "Invalid email or password")

// AuthService handles registration, login and logout
type AuthService struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		logger:     log,
	}
}

// Register creates an account under one role and signs the user in
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	role, ok := identity.ParseRole(input.Role)
	if !ok {
		return nil, shared.NewDomainError("INVALID_ROLE", "Role must be SE or PA")
	}
	user, err := identity.NewUser(input.Username, input.Email, input.Password, role)
	if err != nil {
		return nil, err
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Email is already registered")
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Email is already registered")
		}
		return nil, err
	}

	s.log(ctx).Info("User registered", zap.String("user_id", user.ID), zap.String("role", role.String()))
	return s.issue(user)
}

// Login authenticates by email and password
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.log(ctx).Warn("Login for unknown email")
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !user.VerifyPassword(input.Password) {
		s.log(ctx).Warn("Invalid password attempt", zap.String("user_id", user.ID))
		return nil, errInvalidCredentials
	}

	user.RecordLogin()
	if err := s.userRepo.Update(ctx, user); err != nil {
		// A stale last-login stamp does not block the login
		s.log(ctx).Error("Failed to record login", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.log(ctx).Info("User logged in", zap.String("user_id", user.ID))
	return s.issue(user)
}

// Logout revokes the presented token for the rest of its lifetime
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	ttl := claims.RemainingTTL()
	if ttl <= 0 {
		return nil
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, ttl); err != nil {
		return err
	}
	s.log(ctx).Info("User logged out", zap.String("user_id", claims.UserID))
	return nil
}

// Profile returns the current user
func (s *AuthService) Profile(ctx context.Context, userID string) (*UserInfo, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := ToUserInfo(user)
	return &info, nil
}

func (s *AuthService) issue(user *identity.User) (*AuthResult, error) {
	token, err := s.jwtService.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken: token.AccessToken,
		TokenType:   TokenTypeBearer,
		ExpiresAt:   token.ExpiresAt,
		User:        ToUserInfo(user),
	}, nil
}

func (s *AuthService) log(ctx context.Context) *logger.ContextLogger {
	return logger.LOr(ctx, s.logger)
}
