package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourbook/internal/auth"
	"tourbook/internal/config"
	"tourbook/internal/domain"
	"tourbook/internal/models"

	"github.com/rs/zerolog"
)

type RegisterInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Session is returned by register and login.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

type AuthService struct {
	users  *UserService
	tokens *auth.TokenManager
	logger *zerolog.Logger
}

func NewAuthService(users *UserService, tokens *auth.TokenManager, logger *zerolog.Logger) *AuthService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &AuthService{users: users, tokens: tokens, logger: logger}
}

// Register opens a tourist account and signs the caller in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	user, err := s.users.createUser(ctx, CreateUserInput{
		FullName: input.FullName,
		Email:    input.Email,
		Password: input.Password,
		Role:     models.RoleTourist,
	})
	if err != nil {
		return nil, err
	}
	return s.session(user)
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*Session, error) {
	if err := checkFields(input); err != nil {
		return nil, err
	}

	user, err := s.users.repo.GetUserByEmail(ctx, normalizeEmail(input.Email))
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, input.Password) {
		s.logger.Warn().Str("user_id", user.ID).Msg("Failed login attempt")
		return nil, domain.ErrInvalidCredentials
	}
	return s.session(user)
}

// Me returns the account behind the identity.
func (s *AuthService) Me(ctx context.Context, id auth.Identity) (*models.User, error) {
	if id.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	user, err := s.users.repo.GetUserByID(ctx, id.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("account no longer exists: %w", domain.ErrUnauthenticated)
	}
	return user, err
}

// SeedAdmin creates the configured admin account unless the email is already taken.
func (s *AuthService) SeedAdmin(ctx context.Context, cfg config.AdminConfig) error {
	if cfg.Email == "" {
		return nil
	}
	_, err := s.users.createUser(ctx, CreateUserInput{
		FullName: cfg.FullName,
		Email:    cfg.Email,
		Password: cfg.Password,
		Role:     models.RoleAdmin,
	})
	if errors.Is(err, domain.ErrEmailTaken) {
		s.logger.Debug().Str("email", cfg.Email).Msg("Admin account already exists")
		return nil
	}
	return err
}

func (s *AuthService) session(user *models.User) (*Session, error) {
	token, exp, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, User: user}, nil
}
