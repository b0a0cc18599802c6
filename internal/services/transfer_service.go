package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"transferdash/internal/core"
	"transferdash/internal/events"
	"transferdash/internal/filters"
	"transferdash/internal/ledger"
	"transferdash/internal/log"
	"transferdash/internal/stats"
	"transferdash/internal/stream"
)

const (
	DefaultDebounce = 300 * time.Millisecond
	DefaultLatency  = time.Second
)

// ErrSubmissionCancelled is returned when the caller gives up during the
// simulated latency.
var ErrSubmissionCancelled = errors.New("transfer submission cancelled")

// TransferService is the query and submission surface of the dashboard. It
// combines the ledger and the filter holder into live statistics streams.
type TransferService struct {
	ledger    *ledger.Store
	filters   *filters.Holder
	publisher events.Publisher
	logger    *log.Logger

	now             func() time.Time
	newID           func() (uuid.UUID, error)
	debounce        time.Duration
	latency         time.Duration
	refreshInterval time.Duration
	locale          stats.Locale
}

type Option func(*TransferService)

func WithClock(now func() time.Time) Option {
	return func(s *TransferService) { s.now = now }
}

func WithDebounce(d time.Duration) Option {
	return func(s *TransferService) { s.debounce = d }
}

// WithLatency sets the simulated network delay of each submission.
func WithLatency(d time.Duration) Option {
	return func(s *TransferService) { s.latency = d }
}

// WithRefreshInterval makes dynamic stats recompute periodically while
// auto-refresh is on. Zero disables it.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *TransferService) { s.refreshInterval = d }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *TransferService) { s.publisher = p }
}

func WithLocale(l stats.Locale) Option {
	return func(s *TransferService) { s.locale = l }
}

func WithLogger(l *log.Logger) Option {
	return func(s *TransferService) { s.logger = l }
}

func NewTransferService(l *ledger.Store, f *filters.Holder, opts ...Option) *TransferService {
	s := &TransferService{
		ledger:    l,
		filters:   f,
		publisher: events.Nop{},
		now:       time.Now,
		newID:     uuid.NewV7,
		debounce:  DefaultDebounce,
		latency:   DefaultLatency,
		locale:    stats.LocaleES,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.OrDiscard(s.logger).WithComponent(log.ComponentTransfer)
	return s
}

// GetTransfers streams the full newest-first list.
func (s *TransferService) GetTransfers(fn func([]core.Transfer)) stream.Subscription {
	return s.ledger.Subscribe(fn)
}

// Transfers returns a snapshot of the ledger.
func (s *TransferService) Transfers() []core.Transfer {
	return s.ledger.All()
}

func (s *TransferService) GetTransferByID(id string) (core.Transfer, bool) {
	return s.ledger.Find(id)
}

// FilterTransfers streams the ledger narrowed by filter on every change.
func (s *TransferService) FilterTransfers(filter core.ReportFilter, fn func([]core.Transfer)) stream.Subscription {
	return s.ledger.Subscribe(func(ts []core.Transfer) {
		fn(stats.Apply(ts, &filter))
	})
}

func (s *TransferService) FilterTransfersNow(filter core.ReportFilter) []core.Transfer {
	return stats.Apply(s.ledger.All(), &filter)
}

// GetDashboardStats streams unfiltered statistics, recomputed on every
// ledger change.
func (s *TransferService) GetDashboardStats(fn func(core.DashboardStats)) stream.Subscription {
	return s.ledger.Subscribe(func(ts []core.Transfer) {
		fn(s.compute(ts, nil))
	})
}

// TodayStats computes unfiltered statistics once.
func (s *TransferService) TodayStats() core.DashboardStats {
	return s.compute(s.ledger.All(), nil)
}

// DynamicStatsNow computes statistics under the current report filter.
func (s *TransferService) DynamicStatsNow() core.DashboardStats {
	f := s.filters.Filter()
	return s.compute(s.ledger.All(), &f)
}

func (s *TransferService) SetReportFilters(f core.ReportFilter) {
	s.filters.SetFilter(f)
}

func (s *TransferService) SetAutoRefresh(enabled bool) {
	s.filters.SetAutoRefresh(enabled)
}

func (s *TransferService) ReportFilters() core.ReportFilter {
	return s.filters.Filter()
}

func (s *TransferService) AutoRefresh() bool {
	return s.filters.AutoRefresh()
}

// GetRealTimeUpdates delivers the newest transfer whenever the ledger
// changes and is not empty.
func (s *TransferService) GetRealTimeUpdates(fn func(core.Transfer)) stream.Subscription {
	return s.ledger.Subscribe(func(ts []core.Transfer) {
		if len(ts) > 0 {
			fn(ts[0])
		}
	})
}

func (s *TransferService) compute(ts []core.Transfer, f *core.ReportFilter) core.DashboardStats {
	return stats.Compute(ts, f, s.now(), stats.WithLocale(s.locale))
}

// dynamicState is the latest value of each upstream of one dynamic stats
// subscription.
type dynamicState struct {
	mu        sync.Mutex
	transfers []core.Transfer
	held      []core.Transfer
	holding   bool
	filter    core.ReportFilter
	auto      bool
}

// GetDynamicDashboardStats streams statistics over the latest ledger, report
// filter and auto-refresh flag. Bursts of upstream changes are debounced and
// a result identical to the previous emission is dropped. While
// auto-refresh is off, ledger changes are held back until it is turned on
// again. Unsubscribe waits for a delivery in progress, so fn must not
// unsubscribe from inside itself.
func (s *TransferService) GetDynamicDashboardStats(fn func(core.DashboardStats)) stream.Subscription {
	st := &dynamicState{auto: true}

	produce := func() core.DashboardStats {
		st.mu.Lock()
		ts, f := st.transfers, st.filter
		st.mu.Unlock()
		return s.compute(ts, &f)
	}
	d := stream.NewDebounce(s.debounce, produce, stream.EqualJSON[core.DashboardStats], fn)

	ledgerSub := s.ledger.Subscribe(func(ts []core.Transfer) {
		st.mu.Lock()
		if st.auto || st.transfers == nil {
			st.transfers = ts
		} else {
			st.held, st.holding = ts, true
		}
		st.mu.Unlock()
		d.Trigger()
	})
	filterSub := s.filters.SubscribeFilter(func(f core.ReportFilter) {
		st.mu.Lock()
		st.filter = f
		st.mu.Unlock()
		d.Trigger()
	})
	autoSub := s.filters.SubscribeAutoRefresh(func(on bool) {
		st.mu.Lock()
		st.auto = on
		if on && st.holding {
			st.transfers, st.held, st.holding = st.held, nil, false
		}
		st.mu.Unlock()
		d.Trigger()
	})

	done := make(chan struct{})
	if s.refreshInterval > 0 {
		go func() {
			ticker := time.NewTicker(s.refreshInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					st.mu.Lock()
					on := st.auto
					st.mu.Unlock()
					if on {
						d.Trigger()
					}
				case <-done:
					return
				}
			}
		}()
	}

	var once sync.Once
	return stream.SubscriptionFunc(func() {
		once.Do(func() {
			ledgerSub.Unsubscribe()
			filterSub.Unsubscribe()
			autoSub.Unsubscribe()
			d.Stop()
			close(done)
		})
	})
}

// Submit waits the simulated latency, then records the proposal as a
// completed transfer and announces it. The proposal is expected to be
// validated by the caller.
func (s *TransferService) Submit(ctx context.Context, p core.TransferProposal) (t core.Transfer, err error) {
	defer func() {
		if r := recover(); r != nil {
			t, err = core.Transfer{}, fmt.Errorf("submit transfer: panic: %v", r)
		}
	}()

	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return core.Transfer{}, fmt.Errorf("%w: %v", ErrSubmissionCancelled, ctx.Err())
	case <-timer.C:
	}

	id, err := s.newID()
	if err != nil {
		return core.Transfer{}, fmt.Errorf("generate transfer id: %w", err)
	}
	t = core.Transfer{
		ID:          id.String(),
		FromAccount: p.FromAccount,
		ToAccount:   p.ToAccount,
		Amount:      p.Amount,
		Date:        s.now(),
		Status:      core.StatusCompleted,
		Description: p.Description,
	}
	if err := s.ledger.Append(ctx, t); err != nil {
		return core.Transfer{}, fmt.Errorf("submit transfer: %w", err)
	}

	s.logger.InfoContext(ctx, "Transfer completed", log.NewFields().
		WithTransfer(t.ID, t.FromAccount.ID, t.ToAccount.ID, t.Amount.StringFixed(2), t.FromAccount.Currency).ToSlice()...)

	if err := s.publisher.PublishTransferEvent(ctx, events.NewTransferCompleted(t)); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish transfer event",
			log.FieldTransferID, t.ID, log.FieldOperation, log.OpPublish, log.FieldError, err)
	}
	return t, nil
}

// SimulateTransfer reports whether the proposal was recorded. It never
// returns an error; failures are logged.
func (s *TransferService) SimulateTransfer(ctx context.Context, p core.TransferProposal) bool {
	if _, err := s.Submit(ctx, p); err != nil {
		s.logger.ErrorContext(ctx, "Transfer simulation failed", log.FieldOperation, log.OpAppend, log.FieldError, err)
		return false
	}
	return true
}

// SimulateTransferAsync resolves the returned channel exactly once.
func (s *TransferService) SimulateTransferAsync(ctx context.Context, p core.TransferProposal) <-chan bool {
	out := make(chan bool, 1)
	go func() {
		out <- s.SimulateTransfer(ctx, p)
	}()
	return out
}
