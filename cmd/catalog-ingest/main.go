// Command catalog-ingest loads gzipped JSONL product feed exports into the
// catalog mirror. Each line is one raw commerce record; records are
// normalized, deduplicated by id across all feed files, and upserted.
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

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/catalog"
	"github.com/xenking/storefront/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
	upsertBatch   = 500
)

func main() {
	_ = godotenv.Load()

	var (
		feedDir     string
		databaseURL string
		currency    string
	)

	flag.StringVar(&feedDir, "feed-dir", "data", "directory containing *.jsonl.gz product feed files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&currency, "currency", "usd", "preferred display currency")
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

	if err := run(ctx, feedDir, databaseURL, currency); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, feedDir, databaseURL, currency string) error {
	files, err := filepath.Glob(filepath.Join(feedDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "list feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz files in %s", feedDir)
	}

	slog.Info("parsing feed files", slog.Int("files", len(files)))

	// Parse all files concurrently, one goroutine per file.
	parsed := make([][]catalog.Product, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(parseFeedFile(gctx, i, f, currency, parsed))
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "parse feeds")
	}

	// Merge with id dedup: the first occurrence across feeds wins.
	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	var merged []catalog.Product
	for _, products := range parsed {
		for _, p := range products {
			if p.ID == "" || seen.TestAndAddString(p.ID) {
				continue
			}
			merged = append(merged, p)
		}
	}

	slog.Info("feeds merged", slog.Int("unique_products", len(merged)))
	if len(merged) == 0 {
		return nil
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

	mirror := postgres.NewCatalogMirror(pool)
	for start := 0; start < len(merged); start += upsertBatch {
		end := min(start+upsertBatch, len(merged))
		if err := mirror.Upsert(ctx, merged[start:end]); err != nil {
			return errors.Wrapf(err, "upsert batch at %d", start)
		}
		slog.Info("batch upserted", slog.Int("done", end), slog.Int("total", len(merged)))
	}

	return nil
}

func parseFeedFile(ctx context.Context, idx int, path, currency string, out [][]catalog.Product) func() error {
	return func() error {
		var (
			products []catalog.Product
			count    uint64
			skipped  uint64
		)

		if err := streamGzFile(ctx, path, func(line []byte) {
			count++
			if count%progressEvery == 0 {
				slog.Info("parse progress", slog.Int("file", idx+1), slog.Uint64("lines", count))
			}

			var raw catalog.RawRecord
			if err := json.Unmarshal(line, &raw); err != nil {
				skipped++
				return
			}
			products = append(products, catalog.Normalize(raw, currency))
		}); err != nil {
			return errors.Wrapf(err, "parse %s", path)
		}

		slog.Info("file parsed",
			slog.Int("file", idx+1),
			slog.Uint64("lines", count),
			slog.Uint64("skipped", skipped),
		)

		out[idx] = products
		return nil
	}
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line []byte)) error {
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
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Bytes())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
