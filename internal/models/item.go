package models

import (
	"strconv"
	"strings"
	"time"
)

// Item represents a sellable product in the catalog together with its stock count.
type Item struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null;index" validate:"required,max=100"`
	Category  string    `json:"category" gorm:"type:varchar(50);not null;index" validate:"required,max=50"`
	Price     float64   `json:"price" gorm:"not null;check:chk_items_price,price >= 0" validate:"gte=0"`
	Quantity  int       `json:"quantity" gorm:"not null;check:chk_items_quantity,quantity >= 0" validate:"gte=0"`
	Image     string    `json:"image,omitempty" gorm:"type:varchar(500)" validate:"omitempty,max=500"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemPatch carries a partial update. Nil fields are left untouched.
type ItemPatch struct {
	Name     *string  `json:"name"`
	Category *string  `json:"category"`
	Price    *float64 `json:"price"`
	Quantity *int     `json:"quantity"`
	Image    *string  `json:"image"`
}

// Empty reports whether the patch changes nothing.
func (p ItemPatch) Empty() bool {
	return p.Name == nil && p.Category == nil && p.Price == nil && p.Quantity == nil && p.Image == nil
}

// Apply copies the set fields of the patch onto item.
func (p ItemPatch) Apply(item *Item) {
	if p.Name != nil {
		item.Name = strings.TrimSpace(*p.Name)
	}
	if p.Category != nil {
		item.Category = strings.TrimSpace(*p.Category)
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.Image != nil {
		item.Image = strings.TrimSpace(*p.Image)
	}
}

// Columns returns the patched fields keyed by column name.
func (p ItemPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.Name != nil {
		cols["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Category != nil {
		cols["category"] = strings.TrimSpace(*p.Category)
	}
	if p.Price != nil {
		cols["price"] = *p.Price
	}
	if p.Quantity != nil {
		cols["quantity"] = *p.Quantity
	}
	if p.Image != nil {
		cols["image"] = strings.TrimSpace(*p.Image)
	}
	return cols
}

// ItemFilter is a conjunction of optional predicates. The zero value matches every item.
type ItemFilter struct {
	Search        string
	MinPrice      *float64
	MaxPrice      *float64
	AvailableOnly bool
}

// Matches reports whether item satisfies every predicate of the filter.
func (f ItemFilter) Matches(item Item) bool {
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		if !strings.Contains(strings.ToLower(item.Name), term) &&
			!strings.Contains(strings.ToLower(item.Category), term) {
			return false
		}
	}
	if f.MinPrice != nil && item.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && item.Price > *f.MaxPrice {
		return false
	}
	if f.AvailableOnly && item.Quantity <= 0 {
		return false
	}
	return true
}

// Key renders the filter as a stable string, used to coalesce identical searches.
func (f ItemFilter) Key() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(f.Search)))
	b.WriteByte('|')
	if f.MinPrice != nil {
		b.WriteString(strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}
	b.WriteByte('|')
	if f.MaxPrice != nil {
		b.WriteString(strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(f.AvailableOnly))
	return b.String()
}

// Receipt is returned by a successful purchase.
type Receipt struct {
	Item        Item      `json:"item"`
	BuyerID     string    `json:"buyer_id"`
	PurchasedAt time.Time `json:"purchased_at"`
}
