// Package cli provides the initialization shared by cmd/transferdash and
// cmd/transferdash-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"transferdash/internal/backend"
	"transferdash/internal/cache"
	"transferdash/internal/config"
	"transferdash/internal/filters"
	apphttp "transferdash/internal/http"
	"transferdash/internal/ledger"
	"transferdash/internal/log"
	"transferdash/internal/notify"
	"transferdash/internal/services"
	"transferdash/internal/sheets"
	gsheet "transferdash/internal/sheets/google"
	"transferdash/internal/stats"
	"transferdash/internal/storage"
)

const cacheSweepInterval = 10 * time.Minute

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger at the given level and makes it the
// slog default.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewNotifier returns the notifier selected by cfg.Notifier.
func NewNotifier(cfg *config.Config, logger *log.Logger) (notify.Notifier, error) {
	switch cfg.Notifier {
	case config.NotifierTelegram:
		n, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			return nil, err
		}
		logger.Info("Telegram notifier initialized", "chat_id", cfg.TelegramChatID)
		return n, nil
	default:
		return notify.NewLog(logger), nil
	}
}

// NewExporter connects to Google Sheets when a spreadsheet is configured and
// returns nil otherwise.
func NewExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.Exporter, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
		return nil, nil
	}
	c, err := gsheet.NewFromEnv(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	return c, nil
}

// App holds the long-lived components both binaries share.
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	Store     backend.Store
	Bus       backend.Bus
	Ledger    *ledger.Store
	Filters   *filters.Holder
	Transfers *services.TransferService
	Accounts  *services.AccountService
	Caches    *cache.Manager

	cleanups []backend.CleanupFunc
}

// NewApp opens the configured store and event bus and builds the services
// on top of them. Close releases everything NewApp opened.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger, factory backend.Factory) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: logger, Caches: cache.NewManager()}

	res, err := factory.CreateStore(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	app.Store = res.Store
	if res.Cleanup != nil {
		app.cleanups = append(app.cleanups, res.Cleanup)
	}

	bus, err := factory.CreateBus(ctx, bcfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	opts := []services.Option{
		services.WithDebounce(cfg.StatsDebounce),
		services.WithLatency(cfg.SubmitLatency),
		services.WithRefreshInterval(cfg.RefreshInterval),
		services.WithLocale(stats.ParseLocale(cfg.Locale)),
		services.WithLogger(logger),
	}
	if bus != nil {
		app.Bus = bus
		app.cleanups = append(app.cleanups, bus.Close)
		opts = append(opts, services.WithPublisher(bus))
	}

	app.Ledger = ledger.Open(ctx, app.Store, storage.KeyTransfers, logger)
	app.Filters = filters.NewHolder()
	app.Transfers = services.NewTransferService(app.Ledger, app.Filters, opts...)
	app.Accounts = services.NewAccountService(app.Store, cfg.AccountsSeedFile, logger)
	app.Caches.Register(app.Accounts.Cache())
	app.Caches.StartCleanup(cacheSweepInterval)

	logger.InfoContext(ctx, "Application initialized",
		"data_backend", cfg.DataBackend,
		"events_backend", cfg.EventsBackend,
		log.FieldCount, app.Ledger.Len())
	return app, nil
}

// Checks lists the dependencies the readiness probe pings.
func (a *App) Checks() map[string]apphttp.Pinger {
	checks := map[string]apphttp.Pinger{"store": a.Store}
	if a.Bus != nil {
		checks["events"] = a.Bus
	}
	return checks
}

// Close runs cleanups in reverse order and reports every failure.
func (a *App) Close() error {
	a.Caches.Stop()
	var errs []error
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		if err := a.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.cleanups = nil
	return errors.Join(errs...)
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM.
func GracefulShutdown(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
