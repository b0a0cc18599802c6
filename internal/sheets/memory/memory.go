// Package memory is an in-process exporter used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"transferdash/internal/core"
	ports "transferdash/internal/sheets"
)

type Store struct {
	mu        sync.Mutex
	summaries [][]any
	transfers [][]any
}

var _ ports.Exporter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) AppendDailySummary(_ context.Context, day time.Time, st core.DashboardStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, ports.SummaryRow(day, st))
	return nil
}

func (s *Store) AppendTransfers(_ context.Context, ts []core.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range ts {
		s.transfers = append(s.transfers, ports.TransferRow(t))
	}
	return nil
}

// Summaries returns a copy of the summary rows appended so far.
func (s *Store) Summaries() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]any(nil), s.summaries...)
}

// Transfers returns a copy of the transfer rows appended so far.
func (s *Store) Transfers() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]any(nil), s.transfers...)
}
