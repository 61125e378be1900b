package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sweetshop/internal/models"

	"github.com/google/uuid"
)

// MemoryItemRepository is an in-memory implementation of ItemRepository. It is only safe for a
// single process: the mutex plays the role of the store's conditional write.
type MemoryItemRepository struct {
	items map[string]models.Item
	mu    sync.RWMutex
}

// NewMemoryItemRepository creates a new instance of MemoryItemRepository.
func NewMemoryItemRepository() *MemoryItemRepository {
	return &MemoryItemRepository{
		items: make(map[string]models.Item),
	}
}

// Find returns the items matching filter.
func (r *MemoryItemRepository) Find(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	itemList := make([]models.Item, 0, len(r.items))
	for _, item := range r.items {
		if filter.Matches(item) {
			itemList = append(itemList, item)
		}
	}
	return itemList, nil
}

// GetByID returns an item by its ID.
func (r *MemoryItemRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("item with ID %s: %w", id, models.ErrNotFound)
	}
	return &item, nil
}

// Create adds a new item.
func (r *MemoryItemRepository) Create(ctx context.Context, item *models.Item) error {
	if err := models.ValidateItem(item); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if _, exists := r.items[item.ID]; exists {
		return fmt.Errorf("item with ID %s: %w", item.ID, models.ErrConflict)
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	r.items[item.ID] = *item
	return nil
}

// Update applies a partial update to an existing item.
func (r *MemoryItemRepository) Update(ctx context.Context, id string, patch models.ItemPatch) (*models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("item with ID %s: %w", id, models.ErrNotFound)
	}
	patch.Apply(&item)
	if err := models.ValidateItem(&item); err != nil {
		return nil, err
	}
	item.UpdatedAt = time.Now().UTC()
	r.items[id] = item
	return &item, nil
}

// Delete removes an item by its ID.
func (r *MemoryItemRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("item with ID %s: %w", id, models.ErrNotFound)
	}
	delete(r.items, id)
	return nil
}

// TryDecrement removes one unit when the item exists and is in stock.
func (r *MemoryItemRepository) TryDecrement(ctx context.Context, id string) (*models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok || item.Quantity <= 0 {
		return nil, models.ErrOutOfStockOrNotFound
	}
	item.Quantity--
	item.UpdatedAt = time.Now().UTC()
	r.items[id] = item
	return &item, nil
}
