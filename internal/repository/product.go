package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ccube-shop/storefront/internal/domain/catalog"
)

const (
	productColumns = `id, name, description, category, price, base_price, sizes, colors, scents, images, in_stock, featured, created_at`

	listProductsSQL = `SELECT ` + productColumns + `
		FROM products WHERE $1 = '' OR category = $1 ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + `
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + `
		FROM products WHERE id = ANY($1)`

	upsertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, COALESCE($13, now()))
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			base_price = EXCLUDED.base_price,
			sizes = EXCLUDED.sizes,
			colors = EXCLUDED.colors,
			scents = EXCLUDED.scents,
			images = EXCLUDED.images,
			in_stock = EXCLUDED.in_stock,
			featured = EXCLUDED.featured`
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
// The price column is JSONB and round-trips through PriceSpec, preserving
// variant entry order.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns catalog products ordered by ID, optionally filtered by category.
func (r *ProductRepository) List(ctx context.Context, category string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, category)
	if err != nil {
		return nil, errors.Wrap(err, "listing products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting product %q", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting product %q", id)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "getting products by ids")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Upsert inserts or replaces a product keyed by its ID. The base_price
// column is refreshed from the price document so display price queries never
// need to parse JSON.
func (r *ProductRepository) Upsert(ctx context.Context, p catalog.Product) error {
	price, err := p.Price.MarshalJSON()
	if err != nil {
		return errors.Wrapf(err, "encoding price of product %q", p.ID)
	}

	var createdAt any
	if !p.CreatedAt.IsZero() {
		createdAt = p.CreatedAt
	}

	_, err = r.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.Name, p.Description, p.Category, price, p.Price.Resolve(""),
		p.Sizes, p.Colors, p.Scents, p.Images,
		p.InStock, p.Featured, createdAt,
	)
	if err != nil {
		return errors.Wrapf(err, "upserting product %q", p.ID)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p     catalog.Product
		price []byte
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &price, &p.BasePrice,
		&p.Sizes, &p.Colors, &p.Scents, &p.Images,
		&p.InStock, &p.Featured, &p.CreatedAt,
	)
	p.Price = catalog.ParsePriceJSON(price)
	return p, err
}
