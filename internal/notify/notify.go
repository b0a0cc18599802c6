// Package notify tells people about completed transfers and daily activity.
package notify

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"transferdash/internal/core"
	"transferdash/internal/log"
)

type Notifier interface {
	TransferCompleted(ctx context.Context, t core.Transfer) error
	DailySummary(ctx context.Context, day time.Time, s core.DashboardStats, csv []byte) error
}

// FormatTransfer renders the confirmation shown for a completed transfer.
func FormatTransfer(t core.Transfer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Transferencia completada\n")
	fmt.Fprintf(&b, "%s → %s\n", t.FromAccount.Name, t.ToAccount.Name)
	fmt.Fprintf(&b, "Monto: %s\n", core.FormatAmount(t.Amount, t.FromAccount.Currency))
	if t.Description != "" {
		fmt.Fprintf(&b, "Concepto: %s\n", t.Description)
	}
	fmt.Fprintf(&b, "ID: %s", t.ID)
	return b.String()
}

// FormatDailySummary renders the end-of-day digest.
func FormatDailySummary(day time.Time, s core.DashboardStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Resumen del %s\n\n", day.Format("2006-01-02"))
	fmt.Fprintf(&b, "Transferencias: %d\n", s.TotalTransactions)
	fmt.Fprintf(&b, "Monto total: %s\n", s.TotalAmount.StringFixed(2))
	fmt.Fprintf(&b, "Promedio: %s\n", s.AverageTransaction.StringFixed(2))
	if s.TotalTransactions == 0 {
		b.WriteString("\nSin actividad hoy.")
		return b.String()
	}

	b.WriteString("\nPor moneda:\n")
	for _, c := range sortedCurrencies(s) {
		fmt.Fprintf(&b, "  • %s\n", core.FormatAmount(s.TotalAmountByCurrency[c], c))
	}
	if len(s.AmountByAccount) > 0 {
		top := s.AmountByAccount[0]
		fmt.Fprintf(&b, "\nMayor volumen: %s (%s)\n", top.AccountName, top.Amount.StringFixed(2))
	}
	if peaks := s.PerformanceMetrics.PeakActivityHours; len(peaks) > 0 {
		fmt.Fprintf(&b, "Horas pico: %s\n", strings.Join(peaks, ", "))
	}
	fmt.Fprintf(&b, "Semana %d: %+.2f%% vs semana anterior",
		s.WeeklySummary.WeekNumber, s.WeeklySummary.ComparisonWithPreviousWeek)
	return b.String()
}

func sortedCurrencies(s core.DashboardStats) []string {
	out := make([]string, 0, len(s.TotalAmountByCurrency))
	for c := range s.TotalAmountByCurrency {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// Log writes notifications to the structured log.
type Log struct {
	logger *log.Logger
}

func NewLog(logger *log.Logger) *Log {
	return &Log{logger: log.OrDiscard(logger).WithComponent(log.ComponentNotify)}
}

func (n *Log) TransferCompleted(ctx context.Context, t core.Transfer) error {
	n.logger.InfoContext(ctx, FormatTransfer(t), log.FieldTransferID, t.ID, log.FieldOperation, log.OpNotify)
	return nil
}

func (n *Log) DailySummary(ctx context.Context, day time.Time, s core.DashboardStats, csv []byte) error {
	n.logger.InfoContext(ctx, FormatDailySummary(day, s), log.FieldOperation, log.OpNotify, "csv_bytes", len(csv))
	return nil
}
