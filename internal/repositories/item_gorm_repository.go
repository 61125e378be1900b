package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sweetshop/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// likeEscaper escapes LIKE wildcards with '!', which every supported dialect accepts as an
// ESCAPE character without further quoting.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// GORMItemRepository is a GORM implementation of ItemRepository.
type GORMItemRepository struct {
	db *gorm.DB
}

// NewGORMItemRepository creates a new instance of GORMItemRepository.
func NewGORMItemRepository(db *gorm.DB) *GORMItemRepository {
	return &GORMItemRepository{
		db: db,
	}
}

// Find returns every item matching filter.
func (r *GORMItemRepository) Find(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	query := r.db.WithContext(ctx).Model(&models.Item{})

	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		pattern := "%" + likeEscaper.Replace(term) + "%"
		query = query.Where("(LOWER(name) LIKE ? ESCAPE '!' OR LOWER(category) LIKE ? ESCAPE '!')", pattern, pattern)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.AvailableOnly {
		query = query.Where("quantity > 0")
	}

	items := make([]models.Item, 0)
	if err := query.Find(&items).Error; err != nil {
		return nil, storeError("find items", err)
	}
	return items, nil
}

// GetByID retrieves a single item by its ID from the database.
func (r *GORMItemRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("item with ID %s: %w", id, models.ErrNotFound)
		}
		return nil, storeError(fmt.Sprintf("get item %s", id), err)
	}
	return &item, nil
}

// Create validates item, assigns its ID and timestamps, and inserts it.
func (r *GORMItemRepository) Create(ctx context.Context, item *models.Item) error {
	if err := models.ValidateItem(item); err != nil {
		return err
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("item with ID %s: %w", item.ID, models.ErrConflict)
		}
		return storeError("create item", err)
	}
	return nil
}

// Update applies patch to the stored item. Only the patched columns are written, so a
// concurrent purchase is not overwritten unless the patch sets quantity itself.
func (r *GORMItemRepository) Update(ctx context.Context, id string, patch models.ItemPatch) (*models.Item, error) {
	var updated models.Item
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Item
		if err := tx.First(&current, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("item with ID %s: %w", id, models.ErrNotFound)
			}
			return storeError(fmt.Sprintf("load item %s", id), err)
		}

		merged := current
		patch.Apply(&merged)
		if err := models.ValidateItem(&merged); err != nil {
			return err
		}

		cols := patch.Columns()
		cols["updated_at"] = time.Now().UTC()
		res := tx.Model(&models.Item{}).Where("id = ?", id).UpdateColumns(cols)
		if res.Error != nil {
			return storeError(fmt.Sprintf("update item %s", id), res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("item with ID %s: %w", id, models.ErrNotFound)
		}

		if err := tx.First(&updated, "id = ?", id).Error; err != nil {
			return storeError(fmt.Sprintf("reload item %s", id), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete hard-deletes an item by its ID.
func (r *GORMItemRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Item{}, "id = ?", id)
	if res.Error != nil {
		return storeError(fmt.Sprintf("delete item %s", id), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("item with ID %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// TryDecrement issues one conditional UPDATE guarded by quantity > 0. The snapshot is read
// back inside the same transaction, while the row is still locked by this writer.
func (r *GORMItemRepository) TryDecrement(ctx context.Context, id string) (*models.Item, error) {
	var item models.Item
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Item{}).
			Where("id = ? AND quantity > 0", id).
			UpdateColumns(map[string]interface{}{
				"quantity":   gorm.Expr("quantity - ?", 1),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return storeError(fmt.Sprintf("decrement item %s", id), res.Error)
		}
		if res.RowsAffected == 0 {
			return models.ErrOutOfStockOrNotFound
		}
		if err := tx.First(&item, "id = ?", id).Error; err != nil {
			return storeError(fmt.Sprintf("reload item %s", id), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}
