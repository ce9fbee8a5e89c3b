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

	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hdu-dev/wordvault/internal/api"
	"github.com/hdu-dev/wordvault/internal/api/middleware"
	"github.com/hdu-dev/wordvault/internal/config"
	"github.com/hdu-dev/wordvault/internal/domain/mastery"
	"github.com/hdu-dev/wordvault/internal/platform/logger"
	"github.com/hdu-dev/wordvault/internal/remote"
	"github.com/hdu-dev/wordvault/internal/service"
	"github.com/hdu-dev/wordvault/internal/syncq"
)

// application holds the wired component graph. Everything is injected
// explicitly at construction; no package reaches for process-wide
// singletons.
type application struct {
	cfg         *config.Config
	logger      *slog.Logger
	coordinator *service.Coordinator
}

// newApplication loads configuration and wires the component graph:
// document store client → sync service → write-behind queue →
// coordinator.
func newApplication() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log := logger.Setup(cfg.Server)

	store, err := remote.NewClient(remote.ClientConfig{
		Endpoint:   cfg.Remote.Endpoint,
		ProjectID:  cfg.Remote.ProjectID,
		DatabaseID: cfg.Remote.DatabaseID,
	}, remote.StaticTokenSource(cfg.Remote.APIKey), log)
	if err != nil {
		return nil, fmt.Errorf("creating document store client: %w", err)
	}

	syncService, err := remote.NewService(store, remote.Config{
		ItemsCollection:   cfg.Remote.ItemsCollection,
		RecordsCollection: cfg.Remote.RecordsCollection,
		MaxConcurrent:     cfg.Sync.MaxConcurrent,
		SubmitTimeout:     time.Duration(cfg.Sync.SubmitTimeoutSeconds) * time.Second,
		ListLimit:         1000,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("creating sync service: %w", err)
	}

	queue, err := syncq.New(syncService, syncq.Config{
		BatchSize:     cfg.Sync.BatchSize,
		FlushInterval: time.Duration(cfg.Sync.FlushIntervalSeconds) * time.Second,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("creating write-behind queue: %w", err)
	}

	masteryService, err := mastery.NewServiceWithParams(&mastery.Params{
		MasteryThreshold: cfg.Sync.MasteryThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("creating mastery service: %w", err)
	}

	coordinator, err := service.NewCoordinator(
		cfg.Remote.OwnerID,
		masteryService,
		queue,
		syncService,
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("creating coordinator: %w", err)
	}

	return &application{
		cfg:         cfg,
		logger:      log,
		coordinator: coordinator,
	}, nil
}

// run bootstraps the in-memory collection from the remote store, serves
// the API, and shuts down gracefully on SIGINT/SIGTERM. Shutdown runs a
// final queue flush so no buffered write is dropped.
func (a *application) run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Foreground loading; degraded fallback handled inside the sync
	// service.
	bootCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	err := a.coordinator.BootstrapFromRemote(bootCtx)
	cancel()
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", slog.Int("port", a.cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown failed", slog.String("error", err.Error()))
	}

	if err := a.coordinator.Close(); err != nil {
		return fmt.Errorf("closing coordinator: %w", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

// router assembles the HTTP surface: open health and metrics endpoints,
// and the authenticated v1 API.
func (a *application) router() http.Handler {
	handler, err := api.NewVaultHandler(a.coordinator, a.logger)
	if err != nil {
		// Guarded by the nil checks in newApplication.
		panic(err)
	}

	auth := middleware.NewAuthMiddleware(a.cfg.Server.APIToken)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.TraceMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Authenticate)
		handler.Routes(r)
	})

	return r
}
