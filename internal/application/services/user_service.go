package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/diagnosai/backend/internal/domain/entities"
	"github.com/diagnosai/backend/internal/domain/repositories"
	"github.com/diagnosai/backend/internal/infrastructure/observability"
	apperrors "github.com/diagnosai/backend/pkg/errors"
)

const (
	emailAlreadyRegistered = "Email already registered"
	invalidCredentials     = "Invalid email or password"
	loginSuccessful        = "Login successful"
)

// UserService handles registration and login
type UserService struct {
	repo       repositories.UserRepository
	tokens     *TokenManager
	bcryptCost int
	now        func() time.Time
}

// NewUserService creates a new user service
func NewUserService(repo repositories.UserRepository, tokens *TokenManager) *UserService {
	return &UserService{
		repo:       repo,
		tokens:     tokens,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// WithBcryptCost overrides the hashing cost (tests use bcrypt.MinCost)
func (s *UserService) WithBcryptCost(cost int) *UserService {
	s.bcryptCost = cost
	return s
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user. A taken email returns a conflict error and nothing is written.
func (s *UserService) Register(ctx context.Context, email, password string, fullName *string) (*entities.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, apperrors.NewValidationError("email is required", apperrors.FieldError{Field: "email", Rule: "required"})
	}
	if password == "" {
		return nil, apperrors.NewValidationError("password is required", apperrors.FieldError{Field: "password", Rule: "required"})
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, apperrors.NewConflictError(emailAlreadyRegistered)
	}
	if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, apperrors.NewValidationError("password must be at most 72 bytes", apperrors.FieldError{Field: "password", Rule: "max"})
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	if fullName != nil {
		trimmed := strings.TrimSpace(*fullName)
		if trimmed == "" {
			fullName = nil
		} else {
			fullName = &trimmed
		}
	}

	user := &entities.User{
		ID:             uuid.NewString(),
		Email:          email,
		HashedPassword: string(hashed),
		FullName:       fullName,
		CreatedAt:      s.now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

// Login verifies credentials and issues an access token
func (s *UserService) Login(ctx context.Context, email, password string) (*entities.LoginResult, error) {
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewUnauthorizedError(invalidCredentials)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, apperrors.NewUnauthorizedError(invalidCredentials)
	}

	if s.tokens == nil {
		return nil, apperrors.NewInternalError("token manager is not configured", fmt.Errorf("nil token manager"))
	}
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to issue token", err)
	}

	return &entities.LoginResult{
		Message: loginSuccessful,
		Token:   token,
	}, nil
}
