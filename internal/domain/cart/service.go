package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/ccube-shop/storefront/internal/domain/catalog"
	"github.com/ccube-shop/storefront/internal/domain/promo"
)

// View is the fully priced cart returned to the storefront: the raw lines
// with resolved prices, the single applied discount, the eligibility
// progress of every active promotion, and the money totals.
type View struct {
	Cart     *Cart
	Lines    []PricedLine
	Discount promo.Summary
	Progress []promo.Progress
	Totals   Totals
}

// PricedLine pairs a cart line with its catalog product and resolved price.
// Product is nil when the catalog record has been removed since the item
// was added; its price resolves to zero.
type PricedLine struct {
	LineItem
	Product   *catalog.Product
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// ServiceConfig holds the tunables of the cart service.
type ServiceConfig struct {
	// TTL is the cart retention window, refreshed on every mutation.
	TTL time.Duration
	// TaxRate is applied to the discounted subtotal (e.g. 0.14).
	TaxRate decimal.Decimal
}

// Service owns cart mutations and summary composition. All pricing and
// discount math is delegated to the catalog resolver and promo engine;
// the service wires cart state, catalog reads, and rule reads together.
type Service struct {
	carts    Repository
	products catalog.Repository
	promos   promo.Repository
	engine   *promo.Engine
	ttl      time.Duration
	taxRate  decimal.Decimal
	now      func() time.Time
}

// NewService creates a cart Service with the required collaborators.
func NewService(
	carts Repository,
	products catalog.Repository,
	promos promo.Repository,
	engine *promo.Engine,
	cfg ServiceConfig,
) *Service {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Service{
		carts:    carts,
		products: products,
		promos:   promos,
		engine:   engine,
		ttl:      ttl,
		taxRate:  cfg.TaxRate,
		now:      time.Now,
	}
}

// Get loads the cart for a device. A missing cart reads as a fresh empty
// cart; an expired cart is deleted and also reads as empty.
func (s *Service) Get(ctx context.Context, deviceID string) (*Cart, error) {
	c, err := s.carts.Get(ctx, deviceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return s.emptyCart(deviceID), nil
		}
		return nil, errors.Wrap(err, "get cart")
	}

	if c.Expired(s.now()) {
		if err := s.carts.Delete(ctx, deviceID); err != nil {
			return nil, errors.Wrap(err, "delete expired cart")
		}
		return s.emptyCart(deviceID), nil
	}
	return c, nil
}

func (s *Service) emptyCart(deviceID string) *Cart {
	return &Cart{DeviceID: deviceID, Items: []LineItem{}}
}

// AddItem puts quantity units of a product into the cart, merging into an
// existing line when the variant selection matches. Unselected variant
// attributes fall back to the product's first declared option, then to the
// "Standard"/"Default" sentinels.
func (s *Service) AddItem(ctx context.Context, deviceID, productID string, quantity int, size, color, scent string) (*Cart, error) {
	if quantity <= 0 {
		return nil, &InvalidQuantityError{ProductID: productID}
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %s", productID)
	}

	size = pickVariant(size, p.Sizes, DefaultSize)
	color = pickVariant(color, p.Colors, DefaultOption)
	scent = pickVariant(scent, p.Scents, DefaultOption)
	key := LineKey(productID, size, color, scent)

	c, err := s.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if line := c.findItem(key); line != nil {
		line.Quantity += quantity
	} else {
		c.Items = append(c.Items, LineItem{
			Key:       key,
			ProductID: productID,
			Quantity:  quantity,
			Size:      size,
			Color:     color,
			Scent:     scent,
			AddedAt:   now,
		})
	}

	if err := s.save(ctx, c, now); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero
// or below removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, deviceID, key string, quantity int) (*Cart, error) {
	c, err := s.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if quantity <= 0 {
		if !c.removeItem(key) {
			return nil, ErrItemNotFound
		}
	} else {
		line := c.findItem(key)
		if line == nil {
			return nil, ErrItemNotFound
		}
		line.Quantity = quantity
	}

	if err := s.save(ctx, c, s.now()); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveItem deletes a line from the cart. Removing an absent line is not
// an error: the end state is the same.
func (s *Service) RemoveItem(ctx context.Context, deviceID, key string) (*Cart, error) {
	c, err := s.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if c.removeItem(key) {
		if err := s.save(ctx, c, s.now()); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Clear drops the device's cart entirely.
func (s *Service) Clear(ctx context.Context, deviceID string) error {
	if err := s.carts.Delete(ctx, deviceID); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}

func (s *Service) save(ctx context.Context, c *Cart, now time.Time) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	c.ExpiresAt = now.Add(s.ttl)
	if err := s.carts.Save(ctx, c); err != nil {
		return errors.Wrap(err, "save cart")
	}
	return nil
}

// Summarize prices the cart, picks the best discount, composes totals, and
// computes promotion progress. It is recomputed from scratch on every call:
// the cart list is the only state, everything else is derived.
func (s *Service) Summarize(ctx context.Context, deviceID string) (*View, error) {
	c, err := s.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	lines, items, err := s.priceLines(ctx, c)
	if err != nil {
		return nil, err
	}

	rules, err := s.promos.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list active promotions")
	}

	discount := s.engine.SelectBest(items, rules)
	return &View{
		Cart:     c,
		Lines:    lines,
		Discount: discount,
		Progress: s.engine.Progress(items, rules),
		Totals:   ComposeTotals(items, discount.TotalSavings, s.taxRate),
	}, nil
}

// priceLines hydrates cart lines with catalog products and resolved unit
// prices. A line whose product vanished from the catalog keeps a zero price
// rather than failing the whole summary.
func (s *Service) priceLines(ctx context.Context, c *Cart) ([]PricedLine, []promo.Item, error) {
	if len(c.Items) == 0 {
		return []PricedLine{}, []promo.Item{}, nil
	}

	ids := make([]string, 0, len(c.Items))
	seen := make(map[string]struct{}, len(c.Items))
	for _, it := range c.Items {
		if _, ok := seen[it.ProductID]; !ok {
			seen[it.ProductID] = struct{}{}
			ids = append(ids, it.ProductID)
		}
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, errors.Wrap(err, "get cart products")
	}
	byID := make(map[string]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	lines := make([]PricedLine, 0, len(c.Items))
	items := make([]promo.Item, 0, len(c.Items))
	for _, it := range c.Items {
		p := byID[it.ProductID]
		price := decimal.Zero
		if p != nil {
			price = catalog.ResolveUnitPrice(*p, it.Size)
		}
		lines = append(lines, PricedLine{
			LineItem:  it,
			Product:   p,
			UnitPrice: price,
			LineTotal: price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
		items = append(items, promo.Item{
			Key:       it.Key,
			ProductID: it.ProductID,
			UnitPrice: price,
			Quantity:  it.Quantity,
		})
	}
	return lines, items, nil
}

// SweepExpired removes every expired cart. Intended to run periodically.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.carts.DeleteExpired(ctx, s.now())
}

func pickVariant(selected string, options []string, fallback string) string {
	if selected != "" {
		return selected
	}
	if len(options) > 0 && options[0] != "" {
		return options[0]
	}
	return fallback
}
