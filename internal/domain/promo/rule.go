package promo

import (
	"context"
	"fmt"
	"time"
)

// Type tags the discount strategy of a promotion rule.
type Type string

// TypeBuyXGetY grants Y free units once the cart holds a complete bundle of
// X paid plus Y free units of applicable products.
const TypeBuyXGetY Type = "buy_x_get_y"

// Rule defines a promotion's behaviour and the products it applies to.
// Rules are immutable for the duration of a cart computation.
type Rule struct {
	ID                 string
	Name               string
	Active             bool
	Type               Type
	BuyQuantity        int
	FreeQuantity       int
	ApplicableProducts []string
	CreatedAt          time.Time
}

// AppliesTo reports whether the rule's eligibility set contains productID.
func (r Rule) AppliesTo(productID string) bool {
	for _, id := range r.ApplicableProducts {
		if id == productID {
			return true
		}
	}
	return false
}

// Description renders the shopper-facing summary of the rule.
func (r Rule) Description() string {
	switch r.Type {
	case TypeBuyXGetY:
		return fmt.Sprintf("Buy %d, Get %d Free!", r.BuyQuantity, r.FreeQuantity)
	default:
		return "Special Offer"
	}
}

// Repository supplies promotion rules from the external rule store.
type Repository interface {
	ListActive(ctx context.Context) ([]Rule, error)
	Upsert(ctx context.Context, r Rule) error
}
