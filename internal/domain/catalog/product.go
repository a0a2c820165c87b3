package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Description string
	Category    string
	Price       PriceSpec
	// BasePrice is the denormalized display price, resolved from Price with
	// no variant selected. The repository maintains it on every upsert.
	BasePrice   decimal.Decimal
	Sizes       []string
	Colors      []string
	Scents      []string
	Images      []string
	InStock     bool
	Featured    bool
	CreatedAt   time.Time
}

// ResolveUnitPrice returns the unit price of p for the given variant key.
// It never fails: malformed or missing price data resolves to zero so that
// a broken catalog record can never break cart computation.
func ResolveUnitPrice(p Product, variantKey string) decimal.Decimal {
	return p.Price.Resolve(variantKey)
}

// Repository defines read and write operations for the product catalog.
type Repository interface {
	// List returns all products, optionally filtered by category.
	// An empty category matches everything.
	List(ctx context.Context, category string) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Upsert(ctx context.Context, p Product) error
}
