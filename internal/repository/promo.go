package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ccube-shop/storefront/internal/domain/promo"
)

const (
	listActivePromotionsSQL = `SELECT id, name, active, type, buy_quantity, free_quantity, applicable_products, created_at
		FROM promotions WHERE active = TRUE ORDER BY created_at, id`

	upsertPromotionSQL = `INSERT INTO promotions (id, name, active, type, buy_quantity, free_quantity, applicable_products)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			active = EXCLUDED.active,
			type = EXCLUDED.type,
			buy_quantity = EXCLUDED.buy_quantity,
			free_quantity = EXCLUDED.free_quantity,
			applicable_products = EXCLUDED.applicable_products`
)

var _ promo.Repository = (*PromotionRepository)(nil)

// PromotionRepository implements promo.Repository backed by PostgreSQL.
type PromotionRepository struct {
	pool *pgxpool.Pool
}

// NewPromotionRepository returns a PromotionRepository that uses the given pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// ListActive returns all active promotion rules in creation order.
func (r *PromotionRepository) ListActive(ctx context.Context) ([]promo.Rule, error) {
	rows, err := r.pool.Query(ctx, listActivePromotionsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing active promotions")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (promo.Rule, error) {
		var rule promo.Rule
		err := row.Scan(
			&rule.ID, &rule.Name, &rule.Active, &rule.Type,
			&rule.BuyQuantity, &rule.FreeQuantity,
			&rule.ApplicableProducts, &rule.CreatedAt,
		)
		return rule, err
	})
}

// Upsert inserts or replaces a promotion rule keyed by its ID.
func (r *PromotionRepository) Upsert(ctx context.Context, rule promo.Rule) error {
	_, err := r.pool.Exec(ctx, upsertPromotionSQL,
		rule.ID, rule.Name, rule.Active, string(rule.Type),
		rule.BuyQuantity, rule.FreeQuantity, rule.ApplicableProducts,
	)
	if err != nil {
		return errors.Wrapf(err, "upserting promotion %q", rule.ID)
	}
	return nil
}
