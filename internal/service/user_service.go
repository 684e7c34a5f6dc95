package service

import (
	"context"
	"fmt"
	"strings"

	"tourbook/internal/auth"
	"tourbook/internal/domain"
	"tourbook/internal/models"

	"github.com/rs/zerolog"
)

type CreateUserInput struct {
	FullName string `json:"fullName" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role"`
}

// UserService manages accounts on behalf of admins.
type UserService struct {
	repo       domain.UserRepository
	bcryptCost int
	logger     *zerolog.Logger
}

func NewUserService(repo domain.UserRepository, bcryptCost int, logger *zerolog.Logger) *UserService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &UserService{repo: repo, bcryptCost: bcryptCost, logger: logger}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// createUser validates the input and stores a new account with a hashed password.
func (s *UserService) createUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	input.Email = normalizeEmail(input.Email)
	input.FullName = strings.TrimSpace(input.FullName)
	if err := checkFields(input); err != nil {
		return nil, err
	}
	if !models.IsValidRole(input.Role) {
		return nil, fmt.Errorf("role %q: %w", input.Role, domain.ErrInvalidRole)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		FullName:     input.FullName,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("User created")
	return user, nil
}

// CreateUser lets an admin open an account with any role, e.g. for guides.
func (s *UserService) CreateUser(ctx context.Context, id auth.Identity, input CreateUserInput) (*models.User, error) {
	if err := requireRole(id, models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.createUser(ctx, input)
}

func (s *UserService) ListUsers(ctx context.Context, id auth.Identity, role string) ([]*models.User, error) {
	if err := requireRole(id, models.RoleAdmin); err != nil {
		return nil, err
	}
	if !models.IsValidRole(role) {
		return nil, fmt.Errorf("role %q: %w", role, domain.ErrInvalidRole)
	}
	return s.repo.ListUsersByRole(ctx, role)
}

func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}
