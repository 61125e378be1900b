package services

import (
	"context"
	"fmt"

	"sweetshop/internal/metrics"
	"sweetshop/internal/models"
	"sweetshop/internal/repositories"
)

// AdminService handles catalog mutations. Callers must have passed the admin gate already;
// the role is not checked again here.
type AdminService struct {
	repo      repositories.ItemRepository
	publisher EventPublisher
	metrics   *metrics.Metrics
}

// NewAdminService creates a new AdminService. publisher and m may be nil.
func NewAdminService(repo repositories.ItemRepository, publisher EventPublisher, m *metrics.Metrics) *AdminService {
	return &AdminService{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
	}
}

// CreateItem stores a new item and returns the stored snapshot.
func (s *AdminService) CreateItem(ctx context.Context, item *models.Item, actor *models.Principal) (*models.Item, error) {
	err := s.repo.Create(ctx, item)
	s.metrics.ObserveMutation("create", err)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	publishEvent(ctx, s.publisher, models.NewItemEvent(models.EventItemCreated, *item, actorID(actor)))
	return item, nil
}

// UpdateItem applies a partial update. Concurrent updates are last-writer-wins; an update
// racing a delete may report models.ErrNotFound.
func (s *AdminService) UpdateItem(ctx context.Context, id string, patch models.ItemPatch, actor *models.Principal) (*models.Item, error) {
	if patch.Empty() {
		return s.repo.GetByID(ctx, id)
	}
	item, err := s.repo.Update(ctx, id, patch)
	s.metrics.ObserveMutation("update", err)
	if err != nil {
		return nil, fmt.Errorf("failed to update item %s: %w", id, err)
	}
	publishEvent(ctx, s.publisher, models.NewItemEvent(models.EventItemUpdated, *item, actorID(actor)))
	return item, nil
}

// DeleteItem hard-deletes an item by its ID.
func (s *AdminService) DeleteItem(ctx context.Context, id string, actor *models.Principal) error {
	err := s.repo.Delete(ctx, id)
	s.metrics.ObserveMutation("delete", err)
	if err != nil {
		return fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	publishEvent(ctx, s.publisher, models.NewItemEvent(models.EventItemDeleted, models.Item{ID: id}, actorID(actor)))
	return nil
}

func actorID(p *models.Principal) string {
	if p == nil {
		return ""
	}
	return p.UserID
}
