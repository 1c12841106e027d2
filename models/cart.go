package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one line of a cart. A product appears at most once per
// cart; adding it again merges quantities.
type CartItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// Cart is the single active cart of a user, stored as one JSON document
// in Redis keyed by user id. Version is bumped on every save and backs
// the optimistic-concurrency check in the repository.
type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	Version   int64      `json:"version"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Find returns the index of the line holding productID, or -1.
func (c *Cart) Find(productID uuid.UUID) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// ItemCount is the sum of line quantities.
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.Items) == 0
}
