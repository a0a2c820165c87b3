package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ccube-shop/storefront/internal/domain/cart"
)

const (
	getCartSQL = `SELECT device_id, items, created_at, updated_at, expires_at
		FROM carts WHERE device_id = $1`

	saveCartSQL = `INSERT INTO carts (device_id, items, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (device_id) DO UPDATE SET
			items = EXCLUDED.items,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at`

	deleteCartSQL = `DELETE FROM carts WHERE device_id = $1`

	deleteExpiredCartsSQL = `DELETE FROM carts WHERE expires_at < $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Line items
// are stored as a JSONB document: carts are always read and written whole.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns the cart for a device, or cart.ErrNotFound.
func (r *CartRepository) Get(ctx context.Context, deviceID string) (*cart.Cart, error) {
	var (
		c     cart.Cart
		items []byte
	)
	err := r.pool.QueryRow(ctx, getCartSQL, deviceID).Scan(
		&c.DeviceID, &items, &c.CreatedAt, &c.UpdatedAt, &c.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting cart %q", deviceID)
	}
	if err := json.Unmarshal(items, &c.Items); err != nil {
		return nil, errors.Wrapf(err, "decoding cart items %q", deviceID)
	}
	return &c, nil
}

// Save upserts the cart keyed by its device ID.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return errors.Wrapf(err, "encoding cart items %q", c.DeviceID)
	}
	_, err = r.pool.Exec(ctx, saveCartSQL,
		c.DeviceID, items, c.CreatedAt, c.UpdatedAt, c.ExpiresAt,
	)
	if err != nil {
		return errors.Wrapf(err, "saving cart %q", c.DeviceID)
	}
	return nil
}

// Delete removes the device's cart. Deleting an absent cart is a no-op.
func (r *CartRepository) Delete(ctx context.Context, deviceID string) error {
	if _, err := r.pool.Exec(ctx, deleteCartSQL, deviceID); err != nil {
		return errors.Wrapf(err, "deleting cart %q", deviceID)
	}
	return nil
}

// DeleteExpired removes every cart that expired before now.
func (r *CartRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, deleteExpiredCartsSQL, now)
	if err != nil {
		return 0, errors.Wrap(err, "deleting expired carts")
	}
	return tag.RowsAffected(), nil
}
