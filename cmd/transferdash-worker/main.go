package main

import (
	"os"

	"transferdash/internal/backend"
	"transferdash/internal/cli"
	"transferdash/internal/log"
	"transferdash/internal/stats"
	"transferdash/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting transferdash-worker")

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
	defer app.Close()

	notifier, err := cli.NewNotifier(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize notifier", log.FieldError, err)
		os.Exit(1)
	}

	opts := []worker.Option{
		worker.WithLocale(stats.ParseLocale(cfg.Locale)),
		worker.WithLogger(logger),
	}
	exporter, err := cli.NewExporter(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize exporter", log.FieldError, err)
		os.Exit(1)
	}
	if exporter != nil {
		opts = append(opts, worker.WithExporter(exporter))
	}

	w := worker.New(app.Store, notifier, opts...)
	if app.Bus == nil {
		logger.Info("No event bus configured, running scheduled reports only")
	}
	if err := w.Run(ctx, app.Bus, cfg.ReportSchedule); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		cancel()
		_ = app.Close()
		os.Exit(1)
	}
	logger.Info("transferdash-worker stopped")
}
