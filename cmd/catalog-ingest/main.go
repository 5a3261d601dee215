// Command catalog-ingest loads gzip-compressed NDJSON supplier feeds into the
// product catalog. Each line is one product. Feeds may overlap: a bloom filter
// screens product ids so the first feed to carry an id wins and later
// duplicates are skipped.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/grosnack/grosnack/internal/domain/product"
	"github.com/grosnack/grosnack/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 50_000
)

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.ndjson.gz supplier feeds")
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
	feeds, err := filepath.Glob(filepath.Join(dataDir, "*.ndjson.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feeds")
	}
	if len(feeds) == 0 {
		return errors.Errorf("no *.ndjson.gz feeds in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := postgres.NewProductRepository(pool)
	stocks := postgres.NewStockRepository(pool)

	// Readers parse feeds concurrently; one writer owns the bloom filter and
	// the database connection order, so dedupe stays deterministic per run.
	parsed := make(chan product.Product, 1024)

	g, ctx := errgroup.WithContext(ctx)
	readers, ctx := errgroup.WithContext(ctx)
	for _, feed := range feeds {
		readers.Go(parseFeed(ctx, feed, parsed))
	}
	g.Go(func() error {
		defer close(parsed)
		return readers.Wait()
	})
	g.Go(func() error {
		seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var written, skipped uint64
		for p := range parsed {
			if seen.TestAndAddString(p.ID) {
				skipped++
				continue
			}
			if err := products.Upsert(ctx, p); err != nil {
				return errors.Wrapf(err, "upsert product %s", p.ID)
			}
			if err := stocks.Ensure(ctx, p.ID, p.Stock); err != nil {
				return errors.Wrapf(err, "ensure stock row for %s", p.ID)
			}
			written++
			if written%progressEvery == 0 {
				slog.Info("write progress", slog.Uint64("written", written))
			}
		}
		slog.Info("ingest summary", slog.Uint64("written", written), slog.Uint64("duplicates_skipped", skipped))
		return nil
	})

	return g.Wait()
}

// parseFeed streams one gzip NDJSON feed and sends parsed products downstream.
func parseFeed(ctx context.Context, path string, out chan<- product.Product) func() error {
	return func() error {
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

		var line uint64
		scanner := bufio.NewScanner(gz)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line++
			if len(scanner.Bytes()) == 0 {
				continue
			}
			p, err := decodeProduct(scanner.Bytes())
			if err != nil {
				return errors.Wrapf(err, "parse %s line %d", path, line)
			}
			select {
			case out <- p:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("feed parsed", slog.String("path", path), slog.Uint64("lines", line))
		return nil
	}
}

func decodeProduct(data []byte) (product.Product, error) {
	p := product.Product{Available: true}
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "brand":
			p.Brand, err = d.Str()
		case "category":
			p.Category, err = d.Str()
		case "price":
			p.Price, err = decodeDecimal(d)
		case "wholesale_price":
			p.WholesalePrice, err = decodeDecimal(d)
		case "min_order_qty":
			p.MinOrderQty, err = d.Int()
		case "max_order_qty":
			p.MaxOrderQty, err = d.Int()
		case "stock":
			p.Stock, err = d.Int()
		case "available":
			p.Available, err = d.Bool()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		return product.Product{}, err
	}
	if p.ID == "" {
		return product.Product{}, errors.New("missing product id")
	}
	return p, nil
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	raw, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(string(raw))
}
