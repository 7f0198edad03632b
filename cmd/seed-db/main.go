// Command seed-db prepares a development database: runs migrations, mirrors
// the embedded sample catalog, and installs a few demo promo codes.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/catalog"
	"github.com/xenking/storefront/internal/promo"
	"github.com/xenking/storefront/internal/storage/postgres"
)

var demoPromos = []promo.Rule{
	{Code: "SAVE10", Kind: promo.KindPercentage, Value: decimal.NewFromInt(10), Description: "10% off your order"},
	{Code: "FIVEOFF", Kind: promo.KindFixed, Value: decimal.NewFromInt(5), Description: "$5 off your order"},
	{Code: "BIGSPENDER", Kind: promo.KindPercentage, Value: decimal.NewFromInt(20), MinSubtotal: decimal.NewFromInt(100), Description: "20% off orders over $100"},
}

func main() {
	_ = godotenv.Load()

	var (
		databaseURL string
		currency    string
	)

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

	if err := run(ctx, databaseURL, currency); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, currency string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	sample := catalog.Sample(currency)
	slog.Info("mirroring sample catalog", slog.Int("products", len(sample)))

	mirror := postgres.NewCatalogMirror(pool)
	if err := mirror.Upsert(ctx, sample); err != nil {
		return errors.Wrap(err, "mirror sample catalog")
	}

	promos := postgres.NewPromoRepository(pool)
	for _, rule := range demoPromos {
		if err := promos.Upsert(ctx, rule); err != nil {
			return errors.Wrap(err, "seed promo rules")
		}
	}
	slog.Info("promo rules seeded", slog.Int("count", len(demoPromos)))

	return nil
}
