// Package app wires configuration, storage, domain services, and the HTTP
// server into a runnable POS backend.
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

	"github.com/xenking/dineease-pos/internal/domain/auth"
	"github.com/xenking/dineease-pos/internal/domain/order"
	"github.com/xenking/dineease-pos/internal/handler"
	"github.com/xenking/dineease-pos/internal/invoice"
	"github.com/xenking/dineease-pos/internal/report"
	"github.com/xenking/dineease-pos/internal/storage/postgres"
	"github.com/xenking/dineease-pos/pkg/health"
	"github.com/xenking/dineease-pos/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles
// graceful shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)

	// Repositories.
	menuRepo := postgres.NewMenuRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)
	reportStore := postgres.NewReportStore(pool)

	// Domain services.
	orderSvc := order.NewService(menuRepo, customerRepo, orderRepo)
	reportSvc := report.NewService(reportStore)

	// Invoice rendering: synchronous renderer plus a background spool that
	// pre-renders PDFs after each payment.
	renderer := invoice.NewRenderer(invoice.Config{
		Title:    cfg.Invoice.Title,
		Currency: cfg.Invoice.Currency,
	})
	spool := invoice.NewSpooler(renderer, orderSvc, cfg.Invoice.SpoolDir, lg)
	if err := spool.Start(ctx, cfg.Invoice.SpoolWorkers); err != nil {
		return errors.Wrap(err, "start invoice spool")
	}

	// HTTP surface.
	h := handler.New(orderSvc, menuRepo, reportSvc, renderer, spool, lg)
	adminOnly := handler.RequireAPIKey(apikeyRepo, cfg.APIKeyPepper, auth.ScopeAdmin)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Register(mux, adminOnly)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(
			httpmiddleware.Wrap(mux,
				httpmiddleware.Recovery(),
				httpmiddleware.CORS(httpmiddleware.CORSConfig{
					AllowOrigins:     cfg.CORS.Origins,
					AllowHeaders:     []string{"Content-Type", "X-API-Key"},
					AllowCredentials: cfg.CORS.AllowCredentials,
				}),
				httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
					Max:    cfg.RateLimit.Max,
					Window: cfg.RateLimit.Window,
				}),
				httpmiddleware.RequestID(),
				httpmiddleware.InjectLogger(zctx.From(ctx)),
				httpmiddleware.LogRequests(),
				httpmiddleware.Metrics("pos-api", m.MeterProvider()),
			),
			"pos-api",
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
		if err := spool.Close(); err != nil {
			lg.Error("Invoice spool shutdown error", zap.Error(err))
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
