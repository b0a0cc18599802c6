// Package sheets exports dashboard activity to spreadsheets.
package sheets

import (
	"context"
	"strings"
	"time"

	"transferdash/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryWriter appends one row per reported day.
	SummaryWriter interface {
		AppendDailySummary(ctx context.Context, day time.Time, s core.DashboardStats) error
	}

	// TransferWriter appends one row per transfer.
	TransferWriter interface {
		AppendTransfers(ctx context.Context, ts []core.Transfer) error
	}

	Exporter interface {
		SummaryWriter
		TransferWriter
	}
)

// SummaryHeader names the columns written by SummaryRow.
var SummaryHeader = []string{"Date", "Transfers", "Total", "Average", "Top account", "Peak hours", "Success rate"}

// TransferHeader names the columns written by TransferRow.
var TransferHeader = []string{"ID", "Date", "From", "To", "Amount", "Currency", "Status", "Description"}

// SummaryRow builds the spreadsheet row for a daily summary.
func SummaryRow(day time.Time, s core.DashboardStats) []any {
	return []any{
		day.Format("2006-01-02"),
		s.TotalTransactions,
		s.TotalAmount.StringFixed(2),
		s.AverageTransaction.StringFixed(2),
		s.AccountWithMostTransactions,
		strings.Join(s.PerformanceMetrics.PeakActivityHours, " "),
		s.PerformanceMetrics.SuccessRate,
	}
}

// TransferRow builds the spreadsheet row for a transfer.
func TransferRow(t core.Transfer) []any {
	return []any{
		t.ID,
		t.Date.Format("2006-01-02 15:04:05"),
		t.FromAccount.Name,
		t.ToAccount.Name,
		t.Amount.StringFixed(2),
		t.FromAccount.Currency,
		string(t.Status),
		t.Description,
	}
}
