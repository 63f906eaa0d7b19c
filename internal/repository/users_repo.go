package repository

import (
	"context"

	"fieldops/internal/domain"
)

// UsersRepository personnel directory persistence.
type UsersRepository interface {
	ListUsers(ctx context.Context, filters UserFilters) ([]*domain.User, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	// GetUserByUsername matches case-insensitively.
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	// FindUserByNameInUnit matches first and last name case-insensitively within unitID.
	FindUserByNameInUnit(ctx context.Context, firstName, lastName, unitID string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) (string, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, userID string) error
}

// UserFilters optional list filters.
type UserFilters struct {
	UnitID string
	Role   string
	Search string // first_name, last_name, username
}
