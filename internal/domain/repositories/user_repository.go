package repositories

import (
	"context"

	"github.com/diagnosai/backend/internal/domain/entities"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create creates a new user. A duplicate email returns a conflict error.
	Create(ctx context.Context, user *entities.User) error

	// GetByEmail retrieves a user by email. Unknown emails return a not found error.
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
}
