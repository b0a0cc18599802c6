package stats

import (
	"slices"

	"transferdash/internal/core"
)

// Apply narrows transfers by f. A nil filter returns every transfer. Date
// and amount bounds are inclusive; an account matches on either side. The
// transaction type has no current-account notion to compare against yet, so
// every type keeps every transfer.
func Apply(transfers []core.Transfer, f *core.ReportFilter) []core.Transfer {
	out := make([]core.Transfer, 0, len(transfers))
	for _, t := range transfers {
		if f == nil || matches(t, f) {
			out = append(out, t)
		}
	}
	return out
}

func matches(t core.Transfer, f *core.ReportFilter) bool {
	if f.DateRange != nil && !f.DateRange.Contains(t.Date) {
		return false
	}
	if len(f.Accounts) > 0 &&
		!slices.Contains(f.Accounts, t.FromAccount.ID) &&
		!slices.Contains(f.Accounts, t.ToAccount.ID) {
		return false
	}
	if f.MinAmount != nil && t.Amount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && t.Amount.GreaterThan(*f.MaxAmount) {
		return false
	}
	return matchesType(t, f.TransactionType)
}

func matchesType(_ core.Transfer, _ core.TransactionType) bool {
	return true
}
