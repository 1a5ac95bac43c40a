package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"

	"github.com/diagnosai/backend/internal/domain/entities"
	"github.com/diagnosai/backend/internal/domain/repositories"
	"github.com/diagnosai/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/diagnosai/backend/pkg/errors"
)

const (
	usersTable         = "users"
	uniqueViolationPQ  = pq.ErrorCode("23505")
	emailRegisteredMsg = "Email already registered"
)

// UserAdapter implements user persistence in Postgres.
type UserAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewUserAdapter creates a new user adapter.
func NewUserAdapter(client *postgres.Client) repositories.UserRepository {
	return &UserAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts a user record.
func (a *UserAdapter) Create(ctx context.Context, user *entities.User) error {
	if user == nil {
		return apperrors.NewInternalError("user is nil", fmt.Errorf("user is nil"))
	}

	fullName := sql.NullString{}
	if user.FullName != nil {
		fullName = sql.NullString{String: *user.FullName, Valid: true}
	}

	record := goqu.Record{
		"id":              user.ID,
		"email":           user.Email,
		"hashed_password": user.HashedPassword,
		"full_name":       fullName,
		"created_at":      user.CreatedAt,
	}

	query, args, err := a.db.Insert(usersTable).Rows(record).Prepared(true).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build user insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(emailRegisteredMsg)
		}
		return apperrors.NewInternalError("failed to create user", err)
	}

	return nil
}

// GetByEmail retrieves a user by email address.
func (a *UserAdapter) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	query, args, err := a.db.From(usersTable).
		Select("id", "email", "hashed_password", "full_name", "created_at").
		Where(goqu.Ex{"email": strings.ToLower(strings.TrimSpace(email))}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build user lookup query", err)
	}

	user := &entities.User{}
	var fullName sql.NullString
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Email,
		&user.HashedPassword,
		&fullName,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("user with email %s not found", email))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get user", err)
	}

	if fullName.Valid {
		name := fullName.String
		user.FullName = &name
	}

	return user, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationPQ
}
