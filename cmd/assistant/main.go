package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/wolfman30/clinic-assistant/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinic-assistant/internal/config"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

func main() {
	// Optional .env for local runs
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic assistant",
		"env", cfg.Env,
		"port", cfg.Port,
		"store", cfg.StoreBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := bootstrap.BuildStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	engine, err := bootstrap.BuildSpeechEngine(cfg, logger)
	if err != nil {
		logger.Error("failed to configure speech gateway", "error", err)
		os.Exit(1)
	}
	if engine == nil {
		logger.Warn("no speech gateway configured; voice input disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app, err := bootstrap.BuildApp(ctx, cfg, bootstrap.AppDeps{
		Store:    store,
		Engine:   engine,
		Registry: reg,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to build assistant", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No WriteTimeout: widget sockets stay open for the whole session.
	}

	app.Coordinator.Start(ctx)

	serve := bootstrap.Task{Name: "http", Run: func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() {
			logger.Info("server listening", "addr", srv.Addr)
			errCh <- srv.ListenAndServe()
		}()
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down server...")
		app.Coordinator.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}}

	if err := bootstrap.Supervise(ctx, logger, append(app.Tasks(), serve)...); err != nil {
		logger.Error("assistant stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
