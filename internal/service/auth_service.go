package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/deskflow/request-portal/internal/auth"
	"github.com/deskflow/request-portal/internal/config"
	"github.com/deskflow/request-portal/internal/domain"
	"github.com/deskflow/request-portal/internal/repository"
	apperrors "github.com/deskflow/request-portal/pkg/util/errorutil"
)

// AuthService coordinates portal accounts and login.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
	clock      Clock
}

// RegisterUserInput describes a new portal account.
type RegisterUserInput struct {
	Name     string      `validate:"required,max=120"`
	Email    string      `validate:"required,email"`
	Password string      `validate:"required,min=8"`
	Role     domain.Role `validate:"required"`
}

// LoginResult carries the issued access token.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
		clock:      func() time.Time { return time.Now().UTC() },
	}
}

// TokenManager exposes token manager for middleware.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Login authenticates an active user by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if !auth.PasswordMatches(user.PasswordHash, password) {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.Active {
		return nil, apperrors.NewForbidden("account disabled")
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// RegisterUser creates a portal account. Only management may register users.
func (s *AuthService) RegisterUser(ctx context.Context, actor domain.Actor, input RegisterUserInput) (*domain.User, error) {
	if actor.Role != domain.RoleManagement {
		return nil, apperrors.NewForbidden("only management can register users")
	}
	return s.createUser(ctx, input)
}

// EnsureBootstrapUser creates the first management account when the email is configured
// and not registered yet.
func (s *AuthService) EnsureBootstrapUser(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !apperrors.IsNotFound(err) {
		return err
	}
	user, err := s.createUser(ctx, RegisterUserInput{
		Name:     "Administrator",
		Email:    email,
		Password: password,
		Role:     domain.RoleManagement,
	})
	if err != nil {
		return err
	}
	s.logger.Info("bootstrap user created", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return nil
}

// ListUsers returns portal users, optionally filtered by role.
func (s *AuthService) ListUsers(ctx context.Context, role *domain.Role) ([]domain.User, error) {
	return s.users.List(ctx, role)
}

func (s *AuthService) createUser(ctx context.Context, input RegisterUserInput) (*domain.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": string(input.Role)})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{"password": "max"})
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := s.clock()
	user := &domain.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
