package handlers

import (
	"context"
	"net/http"

	"github.com/diagnosai/backend/internal/domain/entities"
)

// UserService defines the account operations used by the handler.
type UserService interface {
	Register(ctx context.Context, email, password string, fullName *string) (*entities.User, error)
	Login(ctx context.Context, email, password string) (*entities.LoginResult, error)
}

// UserHandler handles registration and login
type UserHandler struct {
	service UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(service UserService) *UserHandler {
	return &UserHandler{service: service}
}

// bcrypt only hashes the first 72 bytes of a password.
type registerRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,max=72"`
	FullName *string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register handles POST /api/users/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, user)
}

// Login handles POST /api/users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
