package item

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrEmptyName       = errors.New("item name cannot be empty")
	ErrEmptySKU        = errors.New("item SKU cannot be empty")
)

// Item is a master-data stock item. Quantity is the authoritative on-hand
// count and is only ever written through the Repository's stock operations.
type Item struct {
	ID        uuid.UUID `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	Quantity  int64     `json:"quantity"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewItem creates an active item with the given initial quantity
func NewItem(sku string, name string, unit string, initialQuantity int64) (*Item, error) {
	if sku == "" {
		return nil, ErrEmptySKU
	}
	if name == "" {
		return nil, ErrEmptyName
	}
	if initialQuantity < 0 {
		return nil, ErrInvalidQuantity
	}

	now := time.Now().UTC()
	return &Item{
		ID:        uuid.New(),
		SKU:       sku,
		Name:      name,
		Unit:      unit,
		Quantity:  initialQuantity,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// HasStock reports whether the item can cover a decrement of qty
func (i *Item) HasStock(qty int64) bool {
	return i.Quantity >= qty
}
