// Command catalog-ingest imports gzipped catalog export shards into the
// products table. Each shard (products-*.json.gz) holds one JSON product per
// line. Shards are processed concurrently; a product ID seen in an earlier
// line wins, so re-exported duplicates never overwrite fresher rows.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/ccube-shop/storefront/internal/domain/catalog"
	"github.com/ccube-shop/storefront/internal/repository"
)

const progressEvery = 10_000

// productLine is the export shard record. The price field stays raw JSON so
// scalar and variant-map shapes both survive the trip into PriceSpec. Older
// exports carry the variant map under "pricing" instead of "price".
type productLine struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       json.RawMessage `json:"price"`
	Pricing     json.RawMessage `json:"pricing"`
	Sizes       []string        `json:"sizes"`
	Colors      []string        `json:"colors"`
	Scents      []string        `json:"scents"`
	Images      []string        `json:"images"`
	InStock     bool            `json:"inStock"`
	Featured    bool            `json:"featured"`
}

// priceSpec folds the two price field generations into one PriceSpec,
// preferring the modern "price" field when it holds something usable.
func (rec productLine) priceSpec() catalog.PriceSpec {
	spec := catalog.ParsePriceJSON(rec.Price)
	if spec.Kind == catalog.PriceUnset {
		spec = catalog.ParsePriceJSON(rec.Pricing)
	}
	return spec
}

// seenIDs tracks product IDs claimed across shards.
type seenIDs struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// claim reports whether id was claimed now (true) or already taken (false).
func (s *seenIDs) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing products-*.json.gz shards")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	shards, err := filepath.Glob(filepath.Join(dataDir, "products-*.json.gz"))
	if err != nil {
		return errors.Wrap(err, "glob shards")
	}
	if len(shards) == 0 {
		return errors.Errorf("no products-*.json.gz shards in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := repository.NewProductRepository(pool)
	seen := &seenIDs{ids: make(map[string]struct{})}

	slog.Info("ingesting shards", slog.Int("count", len(shards)))

	g, ctx := errgroup.WithContext(ctx)
	for i, shard := range shards {
		g.Go(ingestShard(ctx, i, shard, repo, seen))
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("all shards ingested", slog.Int("products", len(seen.ids)))
	return nil
}

func ingestShard(
	ctx context.Context,
	idx int,
	path string,
	repo *repository.ProductRepository,
	seen *seenIDs,
) func() error {
	return func() error {
		var upserted, skipped uint64

		err := streamGzLines(ctx, path, func(line []byte) error {
			var rec productLine
			if err := json.Unmarshal(line, &rec); err != nil {
				return errors.Wrap(err, "decode product line")
			}
			if rec.ID == "" {
				return errors.New("product line without id")
			}
			if !seen.claim(rec.ID) {
				skipped++
				return nil
			}

			p := catalog.Product{
				ID:          rec.ID,
				Name:        rec.Name,
				Description: rec.Description,
				Category:    rec.Category,
				Price:       rec.priceSpec(),
				Sizes:       rec.Sizes,
				Colors:      rec.Colors,
				Scents:      rec.Scents,
				Images:      rec.Images,
				InStock:     rec.InStock,
				Featured:    rec.Featured,
			}
			if err := repo.Upsert(ctx, p); err != nil {
				return errors.Wrapf(err, "upsert product %s", rec.ID)
			}

			upserted++
			if upserted%progressEvery == 0 {
				slog.Info("ingest progress",
					slog.Int("shard", idx+1),
					slog.Uint64("upserted", upserted),
				)
			}
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "ingest shard %s", path)
		}

		slog.Info("shard complete",
			slog.Int("shard", idx+1),
			slog.Uint64("upserted", upserted),
			slog.Uint64("duplicates_skipped", skipped),
		)
		return nil
	}
}

// streamGzLines opens a gzip-compressed file and calls fn for each
// non-empty line.
func streamGzLines(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
