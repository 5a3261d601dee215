// Package app wires the fulfillment core together and runs the HTTP server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/grosnack/grosnack/internal/domain/cart"
	"github.com/grosnack/grosnack/internal/domain/checkout"
	"github.com/grosnack/grosnack/internal/domain/metrics"
	"github.com/grosnack/grosnack/internal/domain/order"
	"github.com/grosnack/grosnack/internal/domain/product"
	"github.com/grosnack/grosnack/internal/domain/stock"
	"github.com/grosnack/grosnack/internal/handler"
	"github.com/grosnack/grosnack/internal/notify"
	"github.com/grosnack/grosnack/internal/storage/local"
	"github.com/grosnack/grosnack/internal/storage/postgres"
	"github.com/grosnack/grosnack/pkg/health"
	"github.com/grosnack/grosnack/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
//
// With a database URL configured the server uses PostgreSQL as the remote
// backend for catalog, stock, and orders. Without one it runs entirely on the
// in-memory backends with the built-in demo catalog.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.Bool("local_only", cfg.DatabaseURL == ""))

	var (
		catalog     product.Repository
		stockRemote stock.Remote
		orderRemote order.Repository
	)

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}

		catalog = postgres.NewProductRepository(pool)
		stockRemote = postgres.NewStockRepository(pool)
		orderRemote = postgres.NewOrderRepository(pool)

		healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
	} else {
		catalog = local.NewProductRepository(local.SeedCatalog())
	}

	// Fulfillment core.
	ledger := stock.NewLedger(stockRemote, catalog, lg.Named("stock"))
	orderStore := order.NewStore(orderRemote, local.NewOrderRepository(), ledger, lg.Named("orders"))
	aggregator := metrics.NewAggregator(cfg.monthlyGoal, orderStore, lg.Named("metrics"))
	orderStore.SetMetricsRefresher(aggregator)

	orchestrator := checkout.NewOrchestrator(
		ledger, orderStore, aggregator,
		notify.NewLogSender(lg.Named("notify")),
		lg.Named("checkout"))

	carts := local.NewCartStore(func() *cart.Cart {
		return cart.New(ledger, cfg.deliveryFee)
	})

	// Initial catalog to ledger sync, then periodic reconciliation so newly
	// ingested products become reservable without a restart.
	if err := syncLedger(ctx, ledger, catalog); err != nil {
		return errors.Wrap(err, "initial stock sync")
	}
	go func() {
		ticker := time.NewTicker(cfg.StockSyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := syncLedger(ctx, ledger, catalog); err != nil {
					lg.Warn("stock sync failed", zap.Error(err))
				}
			}
		}
	}()

	// HTTP surface.
	h := handler.NewHandler(catalog, carts, orderStore, aggregator, orchestrator, ledger)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Routes(mux)

	wrapped := httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "X-User-ID", "X-Request-ID"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.LogRequests(),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(wrapped, "grosnack-api",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}

	healthSvc.SetReady(true)

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
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

func syncLedger(ctx context.Context, ledger *stock.Ledger, catalog product.Repository) error {
	products, err := catalog.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list products")
	}
	ledger.Sync(ctx, products)
	return nil
}
