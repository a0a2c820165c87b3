package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for cart operations.
var (
	ErrNotFound     = errors.New("cart not found")
	ErrItemNotFound = errors.New("cart item not found")
)

// InvalidQuantityError indicates an add or update with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// Variant sentinel values used when the shopper picks nothing and the
// product declares no options.
const (
	DefaultSize   = "Standard"
	DefaultOption = "Default"
)

// LineItem is one entry of a cart: a product plus the selected variant
// attributes and a quantity. The key uniquely identifies the line within
// the cart and is derived from the product and variant selection.
type LineItem struct {
	Key       string    `json:"key"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Size      string    `json:"size"`
	Color     string    `json:"color"`
	Scent     string    `json:"scent"`
	AddedAt   time.Time `json:"added_at"`
}

// LineKey derives the cart line key for a product and variant selection.
func LineKey(productID, size, color, scent string) string {
	return strings.Join([]string{productID, size, color, scent}, "-")
}

// Cart is the unit of mutable state: a device-scoped list of line items.
// Everything else (pricing, discounts, totals) is recomputed from it.
type Cart struct {
	DeviceID  string
	Items     []LineItem
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// ItemCount returns the total number of units across all lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Expired reports whether the cart's retention window has elapsed.
func (c *Cart) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

func (c *Cart) findItem(key string) *LineItem {
	for i := range c.Items {
		if c.Items[i].Key == key {
			return &c.Items[i]
		}
	}
	return nil
}

func (c *Cart) removeItem(key string) bool {
	for i := range c.Items {
		if c.Items[i].Key == key {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Repository defines persistence operations for carts.
type Repository interface {
	// Get returns the cart for a device. Returns ErrNotFound when the
	// device has no stored cart.
	Get(ctx context.Context, deviceID string) (*Cart, error)
	// Save upserts the cart keyed by its device ID.
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, deviceID string) error
	// DeleteExpired removes every cart whose expiry precedes now and
	// returns the number of carts removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
