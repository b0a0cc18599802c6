package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"transferdash/internal/core"
	"transferdash/internal/events"
	"transferdash/internal/filters"
	"transferdash/internal/ledger"
	"transferdash/internal/storage"
	"transferdash/internal/storage/memory"
)

var fixedNow = time.Date(2025, 3, 12, 14, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.TransferEvent
	err    error
}

func (p *recordingPublisher) PublishTransferEvent(_ context.Context, e *events.TransferEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

type statsCollector struct {
	mu   sync.Mutex
	vals []core.DashboardStats
}

func (c *statsCollector) add(s core.DashboardStats) {
	c.mu.Lock()
	c.vals = append(c.vals, s)
	c.mu.Unlock()
}

func (c *statsCollector) snapshot() []core.DashboardStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.DashboardStats(nil), c.vals...)
}

func newService(t *testing.T, opts ...Option) (*TransferService, *ledger.Store, *memory.Store) {
	t.Helper()
	kv := memory.New()
	store := ledger.Open(context.Background(), kv, storage.KeyTransfers, nil)
	base := []Option{WithClock(func() time.Time { return fixedNow }), WithLatency(time.Millisecond)}
	return NewTransferService(store, filters.NewHolder(), append(base, opts...)...), store, kv
}

func proposal() core.TransferProposal {
	return core.TransferProposal{
		FromAccount: DefaultAccounts()[0],
		ToAccount:   DefaultAccounts()[1],
		Amount:      decimal.NewFromInt(100),
		Description: "rent",
	}
}

func appendAt(t *testing.T, store *ledger.Store, id string, amount int64, at time.Time) {
	t.Helper()
	tr := core.Transfer{
		ID:          id,
		FromAccount: DefaultAccounts()[0],
		ToAccount:   DefaultAccounts()[1],
		Amount:      decimal.NewFromInt(amount),
		Date:        at,
		Status:      core.StatusCompleted,
	}
	if err := store.Append(context.Background(), tr); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestSimulateTransferRecordsCompletedTransfer(t *testing.T) {
	pub := &recordingPublisher{}
	svc, store, _ := newService(t, WithPublisher(pub))

	if !svc.SimulateTransfer(context.Background(), proposal()) {
		t.Fatalf("expected success")
	}

	head := store.All()[0]
	if head.Status != core.StatusCompleted || !head.Date.Equal(fixedNow) || head.Description != "rent" {
		t.Fatalf("unexpected head: %+v", head)
	}
	id, err := uuid.Parse(head.ID)
	if err != nil || id.Version() != 7 {
		t.Fatalf("expected a version 7 uuid, got %q (%v)", head.ID, err)
	}
	if got, ok := svc.GetTransferByID(head.ID); !ok || got.ID != head.ID {
		t.Fatalf("transfer not found by id")
	}
	if len(pub.events) != 1 || pub.events[0].Transfer.ID != head.ID || pub.events[0].Type != events.TypeTransferCompleted {
		t.Fatalf("unexpected published events: %+v", pub.events)
	}
}

func TestSimulateTransferIDsAreUnique(t *testing.T) {
	svc, store, _ := newService(t)
	for i := 0; i < 20; i++ {
		if !svc.SimulateTransfer(context.Background(), proposal()) {
			t.Fatalf("submission %d failed", i)
		}
	}
	seen := map[string]bool{}
	for _, tr := range store.All() {
		if seen[tr.ID] {
			t.Fatalf("duplicate id %s", tr.ID)
		}
		seen[tr.ID] = true
	}
}

func TestSimulateTransferPublishFailureStillSucceeds(t *testing.T) {
	svc, store, _ := newService(t, WithPublisher(&recordingPublisher{err: errors.New("broker down")}))
	if !svc.SimulateTransfer(context.Background(), proposal()) || store.Len() != 1 {
		t.Fatalf("publish errors must not fail the submission")
	}
}

func TestSimulateTransferPersistenceFailure(t *testing.T) {
	svc, store, kv := newService(t)
	kv.FailWrites = errors.New("quota exceeded")

	if svc.SimulateTransfer(context.Background(), proposal()) {
		t.Fatalf("expected failure")
	}
	if store.Len() != 0 {
		t.Fatalf("failed submission must not change the ledger")
	}
}

func TestSimulateTransferCancelled(t *testing.T) {
	svc, store, _ := newService(t, WithLatency(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if svc.SimulateTransfer(ctx, proposal()) {
		t.Fatalf("expected cancellation to fail the submission")
	}
	if _, err := svc.Submit(ctx, proposal()); !errors.Is(err, ErrSubmissionCancelled) {
		t.Fatalf("expected ErrSubmissionCancelled, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("cancelled submission changed the ledger")
	}
}

func TestSimulateTransferRecoversFromPanic(t *testing.T) {
	svc, _, _ := newService(t)
	svc.newID = func() (uuid.UUID, error) { panic("entropy exhausted") }

	if svc.SimulateTransfer(context.Background(), proposal()) {
		t.Fatalf("a panic must resolve as failure")
	}
}

func TestSimulateTransferAsyncResolvesOnce(t *testing.T) {
	svc, _, _ := newService(t)
	ch := svc.SimulateTransferAsync(context.Background(), proposal())

	select {
	case ok := <-ch:
		if !ok {
			t.Fatalf("expected success")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("submission never resolved")
	}
	select {
	case <-ch:
		t.Fatalf("resolved twice")
	default:
	}
}

func TestGetDashboardStatsScenarios(t *testing.T) {
	svc, store, _ := newService(t)
	var got []core.DashboardStats
	sub := svc.GetDashboardStats(func(s core.DashboardStats) { got = append(got, s) })
	defer sub.Unsubscribe()

	empty := got[0]
	if empty.TotalTransactions != 0 || !empty.TotalAmount.IsZero() || !empty.AverageTransaction.IsZero() ||
		empty.AccountWithMostTransactions != core.NoAccount || len(empty.TotalAmountByCurrency) != 0 {
		t.Fatalf("unexpected empty stats: %+v", empty)
	}

	appendAt(t, store, "a", 100, fixedNow.Add(-time.Hour))
	one := got[len(got)-1]
	if !one.TotalAmount.Equal(decimal.NewFromInt(100)) || !one.AverageTransaction.Equal(decimal.NewFromInt(100)) ||
		!one.TotalAmountByCurrency["USD"].Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected stats: %+v", one)
	}
	if svc.TodayStats().TotalTransactions != 1 {
		t.Fatalf("TodayStats out of sync")
	}
}

func TestFilterTransfersMinAmount(t *testing.T) {
	svc, store, _ := newService(t)
	for i, amt := range []int64{50, 100, 150} {
		appendAt(t, store, string(rune('a'+i)), amt, fixedNow)
	}
	lo := decimal.NewFromInt(100)
	f := core.ReportFilter{MinAmount: &lo}

	var got []core.Transfer
	sub := svc.FilterTransfers(f, func(ts []core.Transfer) { got = ts })
	defer sub.Unsubscribe()

	if len(got) != 2 || len(svc.FilterTransfersNow(f)) != 2 {
		t.Fatalf("expected two transfers, got %d", len(got))
	}
	for _, tr := range got {
		if tr.Amount.LessThan(lo) {
			t.Fatalf("transfer below bound leaked: %+v", tr)
		}
	}
}

func TestGetRealTimeUpdatesEmitsHead(t *testing.T) {
	svc, store, _ := newService(t)
	var heads []string
	sub := svc.GetRealTimeUpdates(func(tr core.Transfer) { heads = append(heads, tr.ID) })

	if len(heads) != 0 {
		t.Fatalf("empty ledger must not emit, got %v", heads)
	}
	appendAt(t, store, "a", 1, fixedNow)
	appendAt(t, store, "b", 1, fixedNow)
	sub.Unsubscribe()
	appendAt(t, store, "c", 1, fixedNow)

	if len(heads) != 2 || heads[0] != "a" || heads[1] != "b" {
		t.Fatalf("unexpected heads: %v", heads)
	}
}

func TestDynamicStatsDebouncesRapidFilterChanges(t *testing.T) {
	svc, store, _ := newService(t, WithDebounce(100*time.Millisecond))
	for i, amt := range []int64{50, 100, 150} {
		appendAt(t, store, string(rune('a'+i)), amt, fixedNow.Add(-time.Hour))
	}

	c := &statsCollector{}
	sub := svc.GetDynamicDashboardStats(c.add)
	defer sub.Unsubscribe()

	for _, bound := range []int64{50, 100, 150} {
		lo := decimal.NewFromInt(bound)
		svc.SetReportFilters(core.ReportFilter{MinAmount: &lo})
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(400 * time.Millisecond)

	got := c.snapshot()
	if len(got) != 1 {
		t.Fatalf("expected exactly one emission, got %d", len(got))
	}
	if got[0].TotalTransactions != 1 || !got[0].TotalAmount.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("emission should reflect the final filter: %+v", got[0])
	}
	if svc.DynamicStatsNow().TotalTransactions != 1 {
		t.Fatalf("DynamicStatsNow should use the current filter")
	}
}

func TestDynamicStatsDropsIdenticalResults(t *testing.T) {
	svc, _, _ := newService(t, WithDebounce(20*time.Millisecond))
	c := &statsCollector{}
	sub := svc.GetDynamicDashboardStats(c.add)
	defer sub.Unsubscribe()
	time.Sleep(100 * time.Millisecond)

	svc.SetAutoRefresh(true)
	svc.SetReportFilters(core.ReportFilter{})
	time.Sleep(100 * time.Millisecond)

	if n := len(c.snapshot()); n != 1 {
		t.Fatalf("identical stats must not be re-emitted, got %d emissions", n)
	}
}

func TestDynamicStatsHoldsLedgerWhileAutoRefreshOff(t *testing.T) {
	svc, store, _ := newService(t, WithDebounce(20*time.Millisecond))
	c := &statsCollector{}
	sub := svc.GetDynamicDashboardStats(c.add)
	defer sub.Unsubscribe()
	time.Sleep(100 * time.Millisecond)

	svc.SetAutoRefresh(false)
	appendAt(t, store, "a", 10, fixedNow)
	time.Sleep(100 * time.Millisecond)
	if n := len(c.snapshot()); n != 1 {
		t.Fatalf("ledger change leaked while auto-refresh was off: %d emissions", n)
	}

	svc.SetAutoRefresh(true)
	time.Sleep(100 * time.Millisecond)
	got := c.snapshot()
	if len(got) != 2 || got[1].TotalTransactions != 1 {
		t.Fatalf("held change should be released when auto-refresh resumes: %+v", got)
	}
}

func TestDynamicStatsUnsubscribeCancelsPendingTimer(t *testing.T) {
	svc, store, _ := newService(t, WithDebounce(30*time.Millisecond), WithRefreshInterval(10*time.Millisecond))
	c := &statsCollector{}
	sub := svc.GetDynamicDashboardStats(c.add)
	time.Sleep(120 * time.Millisecond)
	if n := len(c.snapshot()); n != 1 {
		t.Fatalf("expected the initial emission only, got %d", n)
	}

	appendAt(t, store, "a", 10, fixedNow)
	sub.Unsubscribe()
	sub.Unsubscribe()
	time.Sleep(120 * time.Millisecond)

	if n := len(c.snapshot()); n != 1 {
		t.Fatalf("emission delivered after unsubscribe: %d", n)
	}
}
