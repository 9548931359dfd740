// Package app wires the checkout API: configuration, storage, collaborator
// clients, domain services, and the HTTP server lifecycle.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/osshop/checkout-api/internal/client"
	"github.com/osshop/checkout-api/internal/domain/cart"
	"github.com/osshop/checkout-api/internal/domain/coupon"
	"github.com/osshop/checkout-api/internal/domain/order"
	"github.com/osshop/checkout-api/internal/domain/payment"
	"github.com/osshop/checkout-api/internal/handler"
	"github.com/osshop/checkout-api/internal/notify"
	"github.com/osshop/checkout-api/internal/repository"
	"github.com/osshop/checkout-api/pkg/health"
	"github.com/osshop/checkout-api/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Optional Redis product cache.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "parse redis url")
		}
		rdb = redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	if rdb != nil {
		healthSvc.AddReadinessCheck("redis", 2*time.Second, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc-pause", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	cartRepo := repository.NewCartRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)

	// Collaborator clients. Catalog lookups go through the Redis cache when
	// one is configured.
	var catalog client.Catalog = client.NewHTTPCatalog(
		cfg.Catalog.URL, client.NewHTTPClient(cfg.Catalog.Timeout))
	if rdb != nil {
		catalog = client.NewCachedCatalog(catalog, rdb, 5*time.Minute)
	}
	identity := client.NewHTTPIdentity(
		cfg.Identity.URL, client.NewHTTPClient(cfg.Identity.Timeout))
	enricher := client.NewEnricher(catalog, cfg.Catalog.Concurrency, cfg.Catalog.Timeout)

	// Domain services.
	couponLedger := coupon.NewLedger(couponRepo)
	if err := couponLedger.WarmFilter(ctx); err != nil {
		lg.Warn("Coupon filter warmup failed; lookups stay unfiltered", zap.Error(err))
	}

	dispatcher := notify.NewDispatcher(
		identity, enricher, notify.NewLogSender(lg), lg, cfg.Notify.Timeout)

	cartService := cart.NewService(cartRepo, catalog, enricher)
	orderWorkflow := order.NewWorkflow(
		cartRepo, couponLedger, orderRepo, identity, enricher, dispatcher)
	paymentProcessor := payment.NewProcessor(orderRepo, paymentRepo, dispatcher)

	// HTTP surface.
	h := handler.NewHandler(
		cartService, orderWorkflow, paymentProcessor, couponLedger,
		handler.NewAuthenticator([]byte(cfg.JWTSecret)))

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", h.Routes()))

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
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
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
		// Let in-flight notification goroutines finish before exit.
		dispatcher.Wait()
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
