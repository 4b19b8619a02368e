package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/raizurai/userhub/internal/audit"
	"github.com/raizurai/userhub/internal/banner"
	"github.com/raizurai/userhub/internal/config"
	"github.com/raizurai/userhub/internal/db"
	"github.com/raizurai/userhub/internal/docs"
	httpx "github.com/raizurai/userhub/internal/http"
	"github.com/raizurai/userhub/internal/observability"
	"github.com/raizurai/userhub/internal/security"
	"github.com/raizurai/userhub/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	configFile := os.Getenv("USERHUB_CONFIG")
	if configFile == "" {
		configFile = "deployment.toml"
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	log, closeLog, err := observability.NewLogger(cfg.Logging, cfg.App.Env)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		shutdownTracer, err := observability.InitTracer(ctx, cfg.App, cfg.Tracing)
		if err != nil {
			return err
		}
		defer func() {
			tctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(tctx)
		}()
	}

	prom := observability.NewProm()

	store, err := db.Open(ctx, cfg.Database, prom)
	if err != nil {
		return err
	}
	defer store.Close()

	sink, err := audit.NewSink(ctx, cfg.Audit, cfg.Logging.Rotation)
	if err != nil {
		return err
	}
	defer func() { _ = sink.Close() }()

	if cfg.Docs.ExportPath != "" {
		if err := docs.Export(cfg.Docs.ExportPath); err != nil {
			log.Warn("openapi export failed", "path", cfg.Docs.ExportPath, "err", err)
		} else {
			log.Info("openapi exported", "path", cfg.Docs.ExportPath)
		}
	}

	var shuttingDown atomic.Bool

	users := service.NewUserService(store, security.NewBcryptHasher(cfg.Security.BcryptCost), log)

	router := httpx.NewRouter(httpx.Deps{
		Config: cfg,
		Log:    log,
		Store:  store,
		Users:  users,
		Prom:   prom,
		Audit:  sink,

		ShuttingDown: shuttingDown.Load,
	})

	// server set up
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	banner.Print(os.Stdout, cfg, store.Kind())

	serveErr := make(chan error, 1)

	go func() {
		log.Info("server starting", "addr", srv.Addr, "env", cfg.App.Env, "database", store.Kind())

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	// Graceful shutdown
	shuttingDown.Store(true)
	log.Info("server shutting down", "grace", cfg.Server.ShutdownGrace.String())

	sctx, cancel := config.WithTimeout(cfg.Server.ShutdownGrace)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return err
	}

	log.Info("shutdown complete")

	return nil
}
