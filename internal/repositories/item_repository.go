package repositories

import (
	"context"
	"errors"
	"fmt"

	"sweetshop/internal/models"
)

// ItemRepository is the catalog store. Every backend must implement TryDecrement as a single
// conditional write so that concurrent purchases can never drive quantity below zero.
type ItemRepository interface {
	Find(ctx context.Context, filter models.ItemFilter) ([]models.Item, error)
	GetByID(ctx context.Context, id string) (*models.Item, error)
	Create(ctx context.Context, item *models.Item) error
	Update(ctx context.Context, id string, patch models.ItemPatch) (*models.Item, error)
	Delete(ctx context.Context, id string) error
	// TryDecrement removes exactly one unit when quantity > 0 and returns the updated item.
	// A sold-out or missing item yields models.ErrOutOfStockOrNotFound and nothing changes.
	TryDecrement(ctx context.Context, id string) (*models.Item, error)
}

// storeError tags infrastructure failures as models.ErrStoreUnavailable. Cancellation by the
// caller is passed through untouched.
func storeError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrStoreUnavailable, err)
}
