package models

import "time"

// Item event types published after successful catalog changes.
const (
	EventItemCreated   = "item.created"
	EventItemUpdated   = "item.updated"
	EventItemDeleted   = "item.deleted"
	EventItemPurchased = "item.purchased"
)

// ItemEvent is the message body published to the broker.
type ItemEvent struct {
	Type       string    `json:"type"`
	ItemID     string    `json:"item_id"`
	Name       string    `json:"name,omitempty"`
	Quantity   int       `json:"quantity"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewItemEvent snapshots item into an event of the given type.
func NewItemEvent(eventType string, item Item, actorID string) ItemEvent {
	return ItemEvent{
		Type:       eventType,
		ItemID:     item.ID,
		Name:       item.Name,
		Quantity:   item.Quantity,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
}
