// internal/repository/user_repo.go
package repository

import (
	"context"

	"talos-store/internal/domain"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	// CreateUser stores a new user.
	CreateUser(ctx context.Context, user *domain.User) error
	// GetUserByID retrieves a user by their ID.
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	// GetUserByUserName retrieves a user by their user name.
	GetUserByUserName(ctx context.Context, userName string) (*domain.User, error)
	// UserNameExists reports whether a user with this name is stored.
	UserNameExists(ctx context.Context, userName string) (bool, error)
	// ListUsers returns every stored user.
	ListUsers(ctx context.Context) ([]domain.User, error)
	// UpdateUser overwrites the stored user with the same ID.
	UpdateUser(ctx context.Context, user *domain.User) error
	// DeleteUser removes the user with the given ID.
	DeleteUser(ctx context.Context, id string) error
}
