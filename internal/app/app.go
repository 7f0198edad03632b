// Package app wires configuration, storage, external clients, and the HTTP
// server into a running storefront service.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/cart"
	"github.com/xenking/storefront/internal/commerce"
	"github.com/xenking/storefront/internal/filter"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/payment"
	"github.com/xenking/storefront/internal/promo"
	"github.com/xenking/storefront/internal/storage/kv"
	"github.com/xenking/storefront/internal/storage/postgres"
	storeredis "github.com/xenking/storefront/internal/storage/redis"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Optional PostgreSQL tier: catalog mirror, persisted carts, promo rules.
	var (
		mirror commerce.Mirror
		rows   cart.Rows = cart.NewMemoryRows()
		promos promo.Repository
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}

		mirror = postgres.NewCatalogMirror(pool)
		rows = postgres.NewCartRows(pool)
		promos = postgres.NewPromoRepository(pool)

		healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
	} else {
		lg.Info("No database configured, using in-memory cart and promo stores")
		promos = promo.NewMemoryRepository()
	}

	// Optional Redis tier: persisted recent searches and wishlist slots.
	var store kv.Store = kv.NewMemory()
	if cfg.RedisURL != "" {
		redisKV, err := storeredis.New(cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "create redis client")
		}
		defer func() { _ = redisKV.Close() }()

		store = redisKV
		healthSvc.AddReadinessCheck("redis", 5*time.Second, redisKV.Ping)
	} else {
		lg.Info("No redis configured, using in-process key-value store")
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// External collaborators.
	catalogClient := commerce.NewClient(commerce.Config{
		BaseURL:           cfg.Commerce.URL,
		APIKey:            cfg.Commerce.APIKey,
		PreferredCurrency: cfg.Commerce.PreferredCurrency,
		PageSize:          cfg.Commerce.PageSize,
		Mirror:            mirror,
	})

	var payments handler.IntentCreator
	if cfg.Payment.URL != "" {
		payments = payment.NewClient(payment.Config{
			BaseURL:   cfg.Payment.URL,
			SecretKey: cfg.Payment.SecretKey,
		})
	} else {
		lg.Info("No payment provider configured, checkout disabled")
	}

	// HTTP surface.
	h := handler.New(
		handler.Config{
			Currency:      cfg.Commerce.PreferredCurrency,
			WebhookSecret: cfg.Payment.WebhookSecret,
		},
		catalogClient,
		filter.NewHistory(store),
		rows,
		promo.NewRepoValidator(promos),
		payments,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Routes(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("storefront-api", m),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
