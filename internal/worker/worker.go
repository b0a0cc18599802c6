// Package worker consumes transfer events and produces the scheduled daily
// report.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"transferdash/internal/core"
	"transferdash/internal/events"
	"transferdash/internal/ledger"
	"transferdash/internal/log"
	"transferdash/internal/notify"
	"transferdash/internal/report"
	"transferdash/internal/sheets"
	"transferdash/internal/stats"
	"transferdash/internal/storage"
)

// DefaultSchedule runs the daily report at 20:00.
const DefaultSchedule = "0 20 * * *"

type Worker struct {
	kv       storage.KeyValueStore
	notifier notify.Notifier
	exporter sheets.Exporter
	locale   stats.Locale
	now      func() time.Time
	logger   *log.Logger
}

type Option func(*Worker)

// WithExporter appends every daily report to a spreadsheet.
func WithExporter(e sheets.Exporter) Option {
	return func(w *Worker) { w.exporter = e }
}

func WithLocale(l stats.Locale) Option {
	return func(w *Worker) { w.locale = l }
}

func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(w *Worker) { w.logger = l }
}

// New builds a worker reading the ledger from kv.
func New(kv storage.KeyValueStore, n notify.Notifier, opts ...Option) *Worker {
	w := &Worker{
		kv:       kv,
		notifier: n,
		locale:   stats.LocaleES,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = log.OrDiscard(w.logger).WithComponent(log.ComponentWorker)
	return w
}

// HandleTransferEvent notifies about a completed transfer. Other event types
// are acknowledged and ignored.
func (w *Worker) HandleTransferEvent(ctx context.Context, e *events.TransferEvent) error {
	if e.Type != events.TypeTransferCompleted {
		w.logger.DebugContext(ctx, "Ignoring event", log.FieldEventType, e.Type)
		return nil
	}
	t := e.Transfer
	w.logger.InfoContext(ctx, "Processing transfer event", log.NewFields().
		WithTransfer(t.ID, t.FromAccount.ID, t.ToAccount.ID, t.Amount.StringFixed(2), t.FromAccount.Currency).ToSlice()...)

	if err := w.notifier.TransferCompleted(ctx, t); err != nil {
		return fmt.Errorf("notify transfer %s: %w", t.ID, err)
	}
	return nil
}

// DailyReport is what RunDailyReport produced.
type DailyReport struct {
	Day       time.Time
	Stats     core.DashboardStats
	Transfers []core.Transfer
	CSV       []byte
}

// BuildDailyReport loads the ledger as currently persisted and summarizes
// today's transfers. Stats run over the whole ledger so the weekly
// comparison and daily trend see earlier days; the transfer list and CSV
// hold today only.
func (w *Worker) BuildDailyReport(ctx context.Context) (DailyReport, error) {
	now := w.now()
	all := ledger.Open(ctx, w.kv, storage.KeyTransfers, w.logger).All()

	today := core.PresetRange(core.RangeToday, now)
	ts := stats.Apply(all, &core.ReportFilter{DateRange: &today})

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, ts); err != nil {
		return DailyReport{}, fmt.Errorf("build daily csv: %w", err)
	}
	return DailyReport{
		Day:       now,
		Stats:     stats.Compute(all, nil, now, stats.WithLocale(w.locale)),
		Transfers: ts,
		CSV:       buf.Bytes(),
	}, nil
}

// RunDailyReport sends the daily summary and exports it when a spreadsheet
// is configured. Every step runs even if an earlier one failed.
func (w *Worker) RunDailyReport(ctx context.Context) error {
	start := time.Now()
	rep, err := w.BuildDailyReport(ctx)
	if err != nil {
		return err
	}

	var errs []error
	if err := w.notifier.DailySummary(ctx, rep.Day, rep.Stats, rep.CSV); err != nil {
		errs = append(errs, fmt.Errorf("send daily summary: %w", err))
	}
	if w.exporter != nil {
		if err := w.exporter.AppendDailySummary(ctx, rep.Day, rep.Stats); err != nil {
			errs = append(errs, fmt.Errorf("export daily summary: %w", err))
		}
		if err := w.exporter.AppendTransfers(ctx, rep.Transfers); err != nil {
			errs = append(errs, fmt.Errorf("export transfers: %w", err))
		}
	}

	w.logger.InfoContext(ctx, "Daily report completed",
		log.FieldCount, len(rep.Transfers),
		log.FieldSuccess, len(errs) == 0,
		log.FieldDurationHuman, time.Since(start).String())
	return errors.Join(errs...)
}

// Run consumes events from c (when not nil) and runs the daily report on
// schedule until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, c events.Consumer, schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	sched := cron.New()
	if _, err := sched.AddFunc(schedule, func() {
		if err := w.RunDailyReport(ctx); err != nil {
			w.logger.Failure(ctx, "Daily report failed", log.OpExport, err)
		}
	}); err != nil {
		return fmt.Errorf("schedule daily report %q: %w", schedule, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sched.Start()
		w.logger.InfoContext(gctx, "Daily report scheduled", "schedule", schedule)
		<-gctx.Done()
		<-sched.Stop().Done()
		return nil
	})
	if c != nil {
		g.Go(func() error {
			err := c.ConsumeTransferEvents(gctx, w.HandleTransferEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("consume transfer events: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}
