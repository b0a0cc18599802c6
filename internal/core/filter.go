package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionAll      TransactionType = "all"
	TransactionIncoming TransactionType = "incoming"
	TransactionOutgoing TransactionType = "outgoing"
)

// Predefined ranges offered by the report filter form.
const (
	RangeToday = "today"
	RangeWeek  = "week"
	RangeMonth = "month"
)

type (
	TransactionType string

	DateRange struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	}

	// ReportFilter narrows the transfers fed into the dashboard. A nil or zero
	// field places no constraint on that dimension.
	ReportFilter struct {
		DateRange       *DateRange       `json:"dateRange,omitempty"`
		Accounts        []string         `json:"accounts,omitempty"`
		MinAmount       *decimal.Decimal `json:"minAmount,omitempty"`
		MaxAmount       *decimal.Decimal `json:"maxAmount,omitempty"`
		TransactionType TransactionType  `json:"transactionType,omitempty"`
	}
)

func (t TransactionType) Valid() bool {
	switch t {
	case "", TransactionAll, TransactionIncoming, TransactionOutgoing:
		return true
	}
	return false
}

// Contains reports whether ts falls inside the range, bounds included.
func (r DateRange) Contains(ts time.Time) bool {
	return !ts.Before(r.Start) && !ts.After(r.End)
}

// Validate rejects inverted ranges and bounds, and unknown transaction types.
func (f ReportFilter) Validate() error {
	if f.DateRange != nil && f.DateRange.End.Before(f.DateRange.Start) {
		return fmt.Errorf("date range end %s is before start %s",
			f.DateRange.End.Format(time.RFC3339), f.DateRange.Start.Format(time.RFC3339))
	}
	if f.MinAmount != nil && f.MaxAmount != nil && f.MaxAmount.LessThan(*f.MinAmount) {
		return fmt.Errorf("max amount %s is below min amount %s", f.MaxAmount, f.MinAmount)
	}
	if !f.TransactionType.Valid() {
		return fmt.Errorf("invalid transaction type %q", f.TransactionType)
	}
	return nil
}

// PresetRange returns the date range behind one of the predefined filter
// choices. Unknown names fall back to the last seven days.
func PresetRange(name string, now time.Time) DateRange {
	end := now
	switch name {
	case RangeToday:
		y, m, d := now.Date()
		return DateRange{
			Start: time.Date(y, m, d, 0, 0, 0, 0, now.Location()),
			End:   time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), now.Location()),
		}
	case RangeMonth:
		return DateRange{Start: now.AddDate(0, -1, 0), End: end}
	default:
		return DateRange{Start: now.AddDate(0, 0, -7), End: end}
	}
}
