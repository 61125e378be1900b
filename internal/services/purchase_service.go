package services

import (
	"context"
	"log/slog"
	"time"

	"sweetshop/internal/metrics"
	"sweetshop/internal/models"
	"sweetshop/internal/repositories"
)

// PurchaseService sells single units of catalog items.
type PurchaseService struct {
	repo      repositories.ItemRepository
	publisher EventPublisher
	metrics   *metrics.Metrics
}

// NewPurchaseService creates a new PurchaseService. publisher and m may be nil.
func NewPurchaseService(repo repositories.ItemRepository, publisher EventPublisher, m *metrics.Metrics) *PurchaseService {
	return &PurchaseService{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
	}
}

// Purchase sells exactly one unit of itemID to buyer, or nothing. Any authenticated role may
// buy. Failures are returned as-is and never retried here: stock may have changed, so the
// caller decides whether to search again.
func (s *PurchaseService) Purchase(ctx context.Context, itemID string, buyer *models.Principal) (*models.Receipt, error) {
	if err := Authorize(buyer, models.RoleUser); err != nil {
		return nil, err
	}

	item, err := s.repo.TryDecrement(ctx, itemID)
	s.metrics.ObservePurchase(err)
	if err != nil {
		return nil, err
	}

	if item.Quantity == 0 {
		slog.InfoContext(ctx, "item sold out", slog.String("item_id", item.ID), slog.String("name", item.Name))
	}
	publishEvent(ctx, s.publisher, models.NewItemEvent(models.EventItemPurchased, *item, buyer.UserID))

	return &models.Receipt{
		Item:        *item,
		BuyerID:     buyer.UserID,
		PurchasedAt: time.Now().UTC(),
	}, nil
}
