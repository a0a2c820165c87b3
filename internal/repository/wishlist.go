package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ccube-shop/storefront/internal/domain/wishlist"
)

const (
	listWishlistSQL = `SELECT device_id, product_id, added_at
		FROM wishlist_items WHERE device_id = $1 ORDER BY added_at DESC, product_id`

	addWishlistSQL = `INSERT INTO wishlist_items (device_id, product_id, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (device_id, product_id) DO NOTHING`

	removeWishlistSQL = `DELETE FROM wishlist_items WHERE device_id = $1 AND product_id = $2`
)

var _ wishlist.Repository = (*WishlistRepository)(nil)

// WishlistRepository implements wishlist.Repository backed by PostgreSQL.
type WishlistRepository struct {
	pool *pgxpool.Pool
}

// NewWishlistRepository returns a WishlistRepository that uses the given pool.
func NewWishlistRepository(pool *pgxpool.Pool) *WishlistRepository {
	return &WishlistRepository{pool: pool}
}

// List returns the device's wishlist entries, newest first.
func (r *WishlistRepository) List(ctx context.Context, deviceID string) ([]wishlist.Entry, error) {
	rows, err := r.pool.Query(ctx, listWishlistSQL, deviceID)
	if err != nil {
		return nil, errors.Wrap(err, "listing wishlist entries")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (wishlist.Entry, error) {
		var e wishlist.Entry
		err := row.Scan(&e.DeviceID, &e.ProductID, &e.AddedAt)
		return e, err
	})
}

// Add saves an entry; duplicates are ignored.
func (r *WishlistRepository) Add(ctx context.Context, e wishlist.Entry) error {
	_, err := r.pool.Exec(ctx, addWishlistSQL, e.DeviceID, e.ProductID, e.AddedAt)
	if err != nil {
		return errors.Wrapf(err, "adding wishlist entry %q", e.ProductID)
	}
	return nil
}

// Remove deletes an entry, reporting whether it existed.
func (r *WishlistRepository) Remove(ctx context.Context, deviceID, productID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, removeWishlistSQL, deviceID, productID)
	if err != nil {
		return false, errors.Wrapf(err, "removing wishlist entry %q", productID)
	}
	return tag.RowsAffected() > 0, nil
}
