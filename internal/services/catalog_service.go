package services

import (
	"context"

	"sweetshop/internal/metrics"
	"sweetshop/internal/models"
	"sweetshop/internal/repositories"

	"golang.org/x/sync/singleflight"
)

// CatalogService serves the anonymous read path.
type CatalogService struct {
	repo    repositories.ItemRepository
	metrics *metrics.Metrics
	group   singleflight.Group
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(repo repositories.ItemRepository, m *metrics.Metrics) *CatalogService {
	return &CatalogService{
		repo:    repo,
		metrics: m,
	}
}

// Search returns the items matching filter. Identical searches in flight at the same moment
// share one store round trip; nothing is cached beyond that.
func (s *CatalogService) Search(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	ch := s.group.DoChan(filter.Key(), func() (interface{}, error) {
		// Detached so one caller going away does not fail the others sharing the call.
		return s.repo.Find(context.WithoutCancel(ctx), filter)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		s.metrics.ObserveSearch()
		shared := res.Val.([]models.Item)
		items := make([]models.Item, len(shared))
		copy(items, shared)
		return items, nil
	}
}

// GetItem retrieves a single item by its ID.
func (s *CatalogService) GetItem(ctx context.Context, id string) (*models.Item, error) {
	return s.repo.GetByID(ctx, id)
}
