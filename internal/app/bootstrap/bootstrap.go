package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"artix/internal/platform/config"
	"artix/internal/platform/db"
	"artix/internal/platform/httpserver"
	"artix/internal/platform/messaging"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	modules  modules
	bus      *messaging.Bus
	jobs     []Job
	interval time.Duration
	logger   *slog.Logger
}

type WorkerApp struct {
	modules  modules
	bus      *messaging.Bus
	jobs     []Job
	interval time.Duration
	logger   *slog.Logger
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	bus := messaging.NewBus(256, logger)
	mods, err := buildModules(ctx, cfg, bus, logger)
	if err != nil {
		return nil, err
	}

	app := &APIApp{
		server:   httpserver.New(mods.contest, mods.auctions, mods.allowance, logger, normalizeAddr(cfg.HTTPPort)),
		modules:  mods,
		bus:      bus,
		interval: cfg.WorkerPollInterval,
		logger:   logger,
	}
	// Without postgres the worker process cannot see this process's state,
	// so the API runs the jobs itself.
	if cfg.UseInMemory || mods.postgres == nil {
		app.jobs = mods.jobs()
	}
	return app, nil
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" && !cfg.UseInMemory {
		return nil, errors.New("POSTGRES_DSN is required for the worker unless USE_IN_MEMORY is set")
	}

	bus := messaging.NewBus(256, logger)
	mods, err := buildModules(ctx, cfg, bus, logger)
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		modules:  mods,
		bus:      bus,
		jobs:     mods.jobs(),
		interval: cfg.WorkerPollInterval,
		logger:   logger,
	}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"background_jobs", len(a.jobs),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	if len(a.jobs) > 0 {
		audit := messaging.AuditConsumer{Bus: a.bus, Logger: a.logger}
		if err := audit.Start(groupCtx); err != nil {
			return err
		}
		group.Go(func() error {
			return RunJobs(groupCtx, a.interval, a.jobs, a.logger)
		})
	}
	group.Go(func() error {
		err := a.server.Start(groupCtx)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	return group.Wait()
}

func (a *APIApp) Close() error {
	return a.modules.close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	audit := messaging.AuditConsumer{Bus: w.bus, Logger: w.logger}
	if err := audit.Start(ctx); err != nil {
		return err
	}

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.interval.String(),
		"jobs", len(w.jobs),
	)
	return RunJobs(ctx, w.interval, w.jobs, w.logger)
}

func (w *WorkerApp) Close() error {
	return w.modules.close()
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}

func closePostgres(pg *db.Postgres) error {
	if pg == nil {
		return nil
	}
	return pg.Close()
}
