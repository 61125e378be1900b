package services

import (
	"context"
	"log/slog"

	"sweetshop/internal/models"
)

// EventPublisher delivers item events to the message broker.
type EventPublisher interface {
	PublishItemEvent(event models.ItemEvent) error
}

// publishEvent is best effort: the catalog change already happened, so a broker failure is
// logged and never returned to the caller.
func publishEvent(ctx context.Context, publisher EventPublisher, event models.ItemEvent) {
	if publisher == nil {
		slog.DebugContext(ctx, "event publisher not configured, skipping event", slog.String("type", event.Type))
		return
	}
	if err := publisher.PublishItemEvent(event); err != nil {
		slog.WarnContext(ctx, "failed to publish item event",
			slog.String("type", event.Type),
			slog.String("item_id", event.ItemID),
			slog.Any("error", err),
		)
	}
}
