package repositories

import (
	"context"

	"sweetshop/internal/models"
)

// UserRepository defines the interface for identity data access. Create must report a duplicate
// email as models.ErrConflict.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}
