// Command seed-db loads a starter catalog, two promotions, and one API key
// into the database. Safe to re-run: everything is upserted.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/ccube-shop/storefront/internal/domain/auth"
	"github.com/ccube-shop/storefront/internal/domain/catalog"
	"github.com/ccube-shop/storefront/internal/domain/promo"
	"github.com/ccube-shop/storefront/internal/repository"
)

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or CCUBE_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or CCUBE_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("CCUBE_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or CCUBE_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("CCUBE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, repository.NewProductRepository(pool)); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedPromotions(ctx, repository.NewPromotionRepository(pool)); err != nil {
		return errors.Wrap(err, "seed promotions")
	}
	if err := seedAPIKey(ctx, repository.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func scalar(s string) catalog.PriceSpec {
	return catalog.PriceSpec{Kind: catalog.PriceScalar, Scalar: decimal.RequireFromString(s)}
}

func variants(entries ...catalog.VariantPrice) catalog.PriceSpec {
	return catalog.PriceSpec{Kind: catalog.PriceVariants, Variants: entries}
}

func vp(key, price string) catalog.VariantPrice {
	return catalog.VariantPrice{Key: key, Price: decimal.RequireFromString(price)}
}

func seedProducts(ctx context.Context, repo *repository.ProductRepository) error {
	products := []catalog.Product{
		{
			ID:          "candle-lavender",
			Name:        "Lavender Dream Candle",
			Description: "Hand-poured soy candle with calming lavender",
			Category:    "candles",
			Price:       variants(vp("small", "200"), vp("medium", "350"), vp("large", "500")),
			Sizes:       []string{"Small", "Medium", "Large"},
			Scents:      []string{"Lavender"},
			InStock:     true,
			Featured:    true,
		},
		{
			ID:          "candle-vanilla",
			Name:        "Vanilla Sky Candle",
			Description: "Warm vanilla with a hint of amber",
			Category:    "candles",
			Price:       variants(vp("small", "180"), vp("large", "420")),
			Sizes:       []string{"Small", "Large"},
			Scents:      []string{"Vanilla"},
			InStock:     true,
		},
		{
			ID:          "diffuser-citrus",
			Name:        "Citrus Grove Diffuser",
			Description: "Reed diffuser, three month scent life",
			Category:    "diffusers",
			Price:       scalar("650"),
			Scents:      []string{"Citrus", "Bergamot"},
			InStock:     true,
		},
		{
			ID:       "wax-melt-rose",
			Name:     "Rose Garden Wax Melts",
			Category: "wax-melts",
			Price:    scalar("120"),
			Scents:   []string{"Rose"},
			InStock:  true,
		},
		{
			ID:       "gift-box-classic",
			Name:     "Classic Gift Box",
			Category: "gifts",
			Price:    scalar("999"),
			Colors:   []string{"Kraft", "Black"},
			InStock:  true,
			Featured: true,
		},
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if err := repo.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}
	return nil
}

func seedPromotions(ctx context.Context, repo *repository.PromotionRepository) error {
	rules := []promo.Rule{
		{
			ID:           "candles-b2g1",
			Name:         "Candle Bundle",
			Active:       true,
			Type:         promo.TypeBuyXGetY,
			BuyQuantity:  2,
			FreeQuantity: 1,
			ApplicableProducts: []string{
				"candle-lavender", "candle-vanilla",
			},
		},
		{
			ID:           "melts-b3g2",
			Name:         "Wax Melt Stock-Up",
			Active:       true,
			Type:         promo.TypeBuyXGetY,
			BuyQuantity:  3,
			FreeQuantity: 2,
			ApplicableProducts: []string{
				"wax-melt-rose",
			},
		},
	}

	slog.Info("seeding promotions", slog.Int("count", len(rules)))

	for _, rule := range rules {
		if err := repo.Upsert(ctx, rule); err != nil {
			return errors.Wrapf(err, "upsert promotion %s", rule.ID)
		}
		slog.Info("upserted promotion", slog.String("id", rule.ID), slog.String("description", rule.Description()))
	}
	return nil
}

func seedAPIKey(ctx context.Context, repo *repository.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	info := auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.HashKey(pepper, apiKey),
		Name:    "Default storefront key",
		Scopes:  []string{"cart:write", "wishlist:write"},
	}
	if err := repo.Insert(ctx, info); err != nil {
		return errors.Wrap(err, "insert default API key")
	}

	slog.Info("upserted API key", slog.String("id", info.ID), slog.String("name", info.Name))
	return nil
}
