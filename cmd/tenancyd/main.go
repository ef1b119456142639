package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/neomorfeo/tenancyd/internal/adapter/fsm"
	otelAdapter "github.com/neomorfeo/tenancyd/internal/adapter/otel"
	cache "github.com/neomorfeo/tenancyd/internal/adapter/ristretto"
	queue "github.com/neomorfeo/tenancyd/internal/adapter/river"
	"github.com/neomorfeo/tenancyd/internal/adapter/sqlite"
	"github.com/neomorfeo/tenancyd/internal/app"
	"github.com/neomorfeo/tenancyd/internal/config"
	"github.com/neomorfeo/tenancyd/internal/logger"

	handler "github.com/neomorfeo/tenancyd/internal/adapter/http"
)

const serviceName = "tenancyd"

func main() {
	if err := run(); err != nil {
		slog.Error("tenancyd failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Logging)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	providers, err := otelAdapter.Setup(ctx, otelAdapter.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Error("otel shutdown", "error", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := otelAdapter.OpenDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	store, err := sqlite.NewFromDB(db)
	if err != nil {
		db.Close()
		return fmt.Errorf("database: %w", err)
	}
	defer store.Close()

	client, err := queue.Setup(ctx, db, queue.Options{Workers: cfg.Queue.Workers, Logger: log})
	if err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	store.SetOutbox(queue.NewPublisher(client))
	// Jobs keep running until Stop below, not until the signal fires.
	if err := client.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("starting queue: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := client.Stop(stopCtx); err != nil {
			log.Error("queue shutdown", "error", err)
		}
	}()

	directory, err := cache.NewCachedPropertyDirectory(store, cfg.Cache.MaxEntries, cfg.Cache.TTL)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer directory.Close()

	uow, err := otelAdapter.NewTracingUnitOfWork(store)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	leases := otelAdapter.NewTracingLeaseRepository(store.Leases())

	// --- Application ---
	svc := app.NewLeaseService(app.Ports{
		UnitOfWork: uow,
		Leases:     leases,
		Refunds:    store.Refunds(),
		Properties: directory,
		Tenants:    store,
		Validator:  fsm.New(),
	}, app.WithLogger(log))
	scanner := app.NewExpiryScanner(leases, directory, time.Now)

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(router)))
	router.Use(middleware.RequestID)
	router.Use(requestLogger(log))
	router.Use(middleware.Recoverer)

	api := humachi.New(router, huma.DefaultConfig(serviceName, "0.1.0"))
	handler.Register(api, handler.Services{
		Leases:            svc,
		Scanner:           scanner,
		DefaultExpiryDays: cfg.Leases.DefaultExpiryDays,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("tenancyd listening", "addr", srv.Addr, "docs", "http://localhost:"+cfg.Server.Port+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("stopped")
	return nil
}

// requestLogger logs one line per request with the chi request ID.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.InfoContext(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
