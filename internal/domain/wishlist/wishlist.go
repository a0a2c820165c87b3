package wishlist

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/ccube-shop/storefront/internal/domain/catalog"
)

// Entry is one saved product on a device's wishlist.
type Entry struct {
	DeviceID  string
	ProductID string
	AddedAt   time.Time
}

// Item is a wishlist entry hydrated with its catalog product.
type Item struct {
	Entry
	Product catalog.Product
}

// Repository defines persistence operations for wishlists.
type Repository interface {
	// List returns the device's entries, newest first.
	List(ctx context.Context, deviceID string) ([]Entry, error)
	// Add saves an entry. Adding an already saved product is a no-op.
	Add(ctx context.Context, e Entry) error
	// Remove deletes an entry, reporting whether it existed.
	Remove(ctx context.Context, deviceID, productID string) (bool, error)
}

// Service manages device-scoped wishlists.
type Service struct {
	entries  Repository
	products catalog.Repository
	now      func() time.Time
}

// NewService creates a wishlist Service.
func NewService(entries Repository, products catalog.Repository) *Service {
	return &Service{entries: entries, products: products, now: time.Now}
}

// Add saves a product to the device's wishlist. The product must exist in
// the catalog at save time.
func (s *Service) Add(ctx context.Context, deviceID, productID string) error {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return errors.Wrapf(err, "get product %s", productID)
	}
	e := Entry{DeviceID: deviceID, ProductID: productID, AddedAt: s.now()}
	if err := s.entries.Add(ctx, e); err != nil {
		return errors.Wrap(err, "add wishlist entry")
	}
	return nil
}

// Remove drops a product from the wishlist. Removing an absent product is
// not an error.
func (s *Service) Remove(ctx context.Context, deviceID, productID string) error {
	if _, err := s.entries.Remove(ctx, deviceID, productID); err != nil {
		return errors.Wrap(err, "remove wishlist entry")
	}
	return nil
}

// List returns the device's wishlist hydrated with catalog products.
// Entries whose product has vanished from the catalog are silently skipped:
// the wishlist is a convenience surface and never hard-fails on stale data.
func (s *Service) List(ctx context.Context, deviceID string) ([]Item, error) {
	entries, err := s.entries.List(ctx, deviceID)
	if err != nil {
		return nil, errors.Wrap(err, "list wishlist entries")
	}
	if len(entries) == 0 {
		return []Item{}, nil
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ProductID)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get wishlist products")
	}
	byID := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		p, ok := byID[e.ProductID]
		if !ok {
			continue
		}
		items = append(items, Item{Entry: e, Product: p})
	}
	return items, nil
}
