package entities

import (
	"time"
)

// User represents a registered user
type User struct {
	ID             string    `json:"id" db:"id"`
	Email          string    `json:"email" db:"email"`
	HashedPassword string    `json:"-" db:"hashed_password"`
	FullName       *string   `json:"full_name" db:"full_name"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// LoginResult is returned on successful authentication
type LoginResult struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}
