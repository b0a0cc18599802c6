package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"transferdash/internal/backend"
	"transferdash/internal/cli"
	"transferdash/internal/config"
	apphttp "transferdash/internal/http"
	"transferdash/internal/log"
	"transferdash/internal/notify"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	app, err := cli.NewApp(ctx, cfg, logger, backend.NewFactory(logger))
	if err != nil {
		logger.Error("Failed to initialize application", log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to release resources", log.FieldError, err)
		}
	}()

	// Without an event bus nobody else delivers completion notices.
	var notifier notify.Notifier
	if cfg.EventsBackend == config.EventsNone {
		notifier, err = cli.NewNotifier(cfg, logger)
		if err != nil {
			logger.Error("Failed to initialize notifier", log.FieldError, err)
			os.Exit(1)
		}
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Transfers: app.Transfers,
		Accounts:  app.Accounts,
		Checks:    app.Checks(),
		Notifier:  notifier,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	// Streaming endpoints hold the connection open, so no WriteTimeout.
	srv.ReadTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting transferdash server",
			"port", cfg.Port,
			"data_backend", cfg.DataBackend,
			"events_backend", cfg.EventsBackend)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			cancel()
			_ = app.Close()
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
