package repository

import (
	"context"
	"errors"

	"docvault/internal/model"
)

// ErrUsernameTaken is returned by Create when the username is already registered.
var ErrUsernameTaken = errors.New("username already taken")

// UserRepository defines data access for user accounts.
type UserRepository interface {
	// Create inserts a new user row. Returns ErrUsernameTaken on a
	// unique-constraint violation for the username.
	Create(ctx context.Context, u *model.User) (*model.User, error)

	// FindByUsername returns the user with the given username.
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByID returns the user with the given ID.
	FindByID(ctx context.Context, id string) (*model.User, error)
}
