// Package report renders printable transfer reports, the dashboard report and
// account statements, and exports transfer history as CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"slices"
	"strconv"
	"time"

	"transferdash/internal/core"

	"github.com/shopspring/decimal"
)

const (
	DefaultTransfersTitle = "Reporte de Transferencias"
	DefaultDashboardTitle = "Reporte del Dashboard"
	DefaultStatementTitle = "Estado de Cuenta"

	generatedLayout = "02/01/2006 15:04"
)

var statusText = map[core.TransferStatus]string{
	core.StatusCompleted: "Completada",
	core.StatusPending:   "Pendiente",
	core.StatusFailed:    "Fallida",
}

// StatusText returns the Spanish label for a transfer status.
func StatusText(s core.TransferStatus) string {
	if v, ok := statusText[s]; ok {
		return v
	}
	return string(s)
}

type (
	TransferLine struct {
		Date        string
		From        string
		FromNumber  string
		To          string
		ToNumber    string
		Amount      string
		Status      string
		StatusClass string
		Description string
	}

	TransferReport struct {
		Title       string
		GeneratedAt string
		Count       int
		Total       string
		Average     string
		Lines       []TransferLine
	}

	CurrencyLine struct {
		Currency string
		Amount   string
	}

	DashboardReport struct {
		Title       string
		GeneratedAt string
		Stats       core.DashboardStats
		Total       string
		Average     string
		Currencies  []CurrencyLine
		Velocity    string
		AvgSize     string
		SuccessRate string
		PeakHours   []string
	}

	StatementLine struct {
		Date         string
		Description  string
		Outgoing     bool
		Counterparty string
		Amount       string
		Balance      string
	}

	AccountStatement struct {
		Title       string
		GeneratedAt string
		Account     core.Account
		Balance     string
		Incoming    string
		Outgoing    string
		Net         string
		Count       int
		Lines       []StatementLine
	}
)

// BuildTransferReport summarizes ts in the order given.
func BuildTransferReport(ts []core.Transfer, title string, now time.Time) TransferReport {
	if title == "" {
		title = DefaultTransfersTitle
	}
	total := decimal.Zero
	lines := make([]TransferLine, 0, len(ts))
	for _, t := range ts {
		total = total.Add(t.Amount)
		desc := t.Description
		if desc == "" {
			desc = core.NoAccount
		}
		lines = append(lines, TransferLine{
			Date:        t.Date.In(now.Location()).Format("02/01/2006 15:04:05"),
			From:        t.FromAccount.Name,
			FromNumber:  t.FromAccount.AccountNumber,
			To:          t.ToAccount.Name,
			ToNumber:    t.ToAccount.AccountNumber,
			Amount:      t.Amount.StringFixed(2),
			Status:      StatusText(t.Status),
			StatusClass: "status-" + string(t.Status),
			Description: desc,
		})
	}
	avg := decimal.Zero
	if len(ts) > 0 {
		avg = total.DivRound(decimal.NewFromInt(int64(len(ts))), 2)
	}
	return TransferReport{
		Title:       title,
		GeneratedAt: now.Format(generatedLayout),
		Count:       len(ts),
		Total:       total.StringFixed(2),
		Average:     avg.StringFixed(2),
		Lines:       lines,
	}
}

// BuildDashboardReport flattens s for display. Currencies are sorted by code.
func BuildDashboardReport(s core.DashboardStats, title string, now time.Time) DashboardReport {
	if title == "" {
		title = DefaultDashboardTitle
	}
	codes := make([]string, 0, len(s.TotalAmountByCurrency))
	for c := range s.TotalAmountByCurrency {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	currencies := make([]CurrencyLine, 0, len(codes))
	for _, c := range codes {
		currencies = append(currencies, CurrencyLine{Currency: c, Amount: s.TotalAmountByCurrency[c].StringFixed(2)})
	}
	return DashboardReport{
		Title:       title,
		GeneratedAt: now.Format(generatedLayout),
		Stats:       s,
		Total:       s.TotalAmount.StringFixed(2),
		Average:     s.AverageTransaction.StringFixed(2),
		Currencies:  currencies,
		Velocity:    strconv.FormatFloat(s.PerformanceMetrics.TransactionVelocity, 'f', 1, 64),
		AvgSize:     s.PerformanceMetrics.AverageTransferSize.StringFixed(2),
		SuccessRate: strconv.FormatFloat(s.PerformanceMetrics.SuccessRate, 'f', -1, 64),
		PeakHours:   s.PerformanceMetrics.PeakActivityHours,
	}
}

// BuildStatement lists the transfers touching acc. ts is newest first, the
// ledger order, so the balance column walks back from the current balance.
func BuildStatement(acc core.Account, ts []core.Transfer, title string, now time.Time) AccountStatement {
	if title == "" {
		title = DefaultStatementTitle
	}
	incoming, outgoing := decimal.Zero, decimal.Zero
	running := acc.Balance
	var lines []StatementLine
	for _, t := range ts {
		if !t.Involves(acc.ID) {
			continue
		}
		out := t.FromAccount.ID == acc.ID
		counterparty := t.FromAccount
		sign := "+"
		if out {
			counterparty = t.ToAccount
			sign = "-"
			outgoing = outgoing.Add(t.Amount)
		} else {
			incoming = incoming.Add(t.Amount)
		}
		desc := t.Description
		if desc == "" {
			desc = "Transferencia"
		}
		lines = append(lines, StatementLine{
			Date:         t.Date.In(now.Location()).Format("02/01/2006"),
			Description:  desc,
			Outgoing:     out,
			Counterparty: fmt.Sprintf("%s (%s)", counterparty.Name, counterparty.AccountNumber),
			Amount:       sign + "$" + t.Amount.StringFixed(2),
			Balance:      running.StringFixed(2),
		})
		if out {
			running = running.Add(t.Amount)
		} else {
			running = running.Sub(t.Amount)
		}
	}
	return AccountStatement{
		Title:       title,
		GeneratedAt: now.Format(generatedLayout),
		Account:     acc,
		Balance:     acc.Balance.StringFixed(2),
		Incoming:    incoming.StringFixed(2),
		Outgoing:    outgoing.StringFixed(2),
		Net:         incoming.Sub(outgoing).StringFixed(2),
		Count:       len(lines),
		Lines:       lines,
	}
}

// Renderer executes the embedded report templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses every templates/*.html file in fsys.
func NewRenderer(fsys fs.FS) (*Renderer, error) {
	t, err := template.ParseFS(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse report templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

func (r *Renderer) Transfers(w io.Writer, rep TransferReport) error {
	return r.execute(w, "transfers_report.html", rep)
}

func (r *Renderer) Dashboard(w io.Writer, rep DashboardReport) error {
	return r.execute(w, "dashboard_report.html", rep)
}

func (r *Renderer) Statement(w io.Writer, rep AccountStatement) error {
	return r.execute(w, "account_statement.html", rep)
}

func (r *Renderer) execute(w io.Writer, name string, data any) error {
	if err := r.templates.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return nil
}

// CSVHeader names the columns written by WriteCSV.
var CSVHeader = []string{"id", "date", "from_account", "from_name", "to_account", "to_name", "amount", "currency", "status", "description"}

// WriteCSV writes ts with a header row. Dates are RFC 3339.
func WriteCSV(w io.Writer, ts []core.Transfer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range ts {
		rec := []string{
			t.ID,
			t.Date.Format(time.RFC3339),
			t.FromAccount.ID,
			t.FromAccount.Name,
			t.ToAccount.ID,
			t.ToAccount.Name,
			t.Amount.StringFixed(2),
			t.FromAccount.Currency,
			string(t.Status),
			t.Description,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %s: %w", t.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
