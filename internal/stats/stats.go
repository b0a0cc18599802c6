// Package stats derives dashboard statistics from a list of transfers. Every
// function is pure: the current time is an argument and local time means
// the location of that argument.
package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"transferdash/internal/core"
)

const trailingWindow = 24 * time.Hour

type options struct {
	locale Locale
}

type Option func(*options)

// WithLocale sets the language of the daily trend labels.
func WithLocale(l Locale) Option {
	return func(o *options) { o.locale = l }
}

// Compute narrows transfers with filter (nil for none) and aggregates them
// relative to now.
func Compute(transfers []core.Transfer, filter *core.ReportFilter, now time.Time, opts ...Option) core.DashboardStats {
	o := options{locale: LocaleES}
	for _, opt := range opts {
		opt(&o)
	}

	filtered := Apply(transfers, filter)
	today := make([]core.Transfer, 0, len(filtered))
	for _, t := range filtered {
		if sameDay(t.Date, now) {
			today = append(today, t)
		}
	}

	s := core.DashboardStats{
		TotalTransactions:     len(today),
		TotalAmount:           sum(today),
		TotalAmountByCurrency: byCurrency(today),
		TransactionsByAccount: countByName(today),
		AmountByAccount:       amountByName(today),
		DailyTrend:            dailyTrend(filtered, now, o.locale),
		WeeklySummary:         weekly(filtered, now),
	}
	s.AverageTransaction = mean(s.TotalAmount, len(today))
	s.AccountWithMostTransactions = leader(today, func(core.Transfer) decimal.Decimal { return decimal.NewFromInt(1) })

	recent := trailing(filtered, now)
	s.TransactionsByHour = hourHistogram(recent, now.Location())
	s.PerformanceMetrics = performance(recent, s.TransactionsByHour)
	return s
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sum(ts []core.Transfer) decimal.Decimal {
	total := decimal.Zero
	for _, t := range ts {
		total = total.Add(t.Amount)
	}
	return total
}

func mean(total decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return total.DivRound(decimal.NewFromInt(int64(n)), 2)
}

func byCurrency(ts []core.Transfer) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, t := range ts {
		c := t.FromAccount.Currency
		out[c] = out[c].Add(t.Amount)
	}
	return out
}

// leader returns the FromAccount.ID with the largest total of weight. Ids
// are visited in order of first appearance and a later id only takes over
// when it strictly exceeds the current maximum.
func leader(ts []core.Transfer, weight func(core.Transfer) decimal.Decimal) string {
	var order []string
	totals := make(map[string]decimal.Decimal)
	for _, t := range ts {
		id := t.FromAccount.ID
		if _, seen := totals[id]; !seen {
			order = append(order, id)
		}
		totals[id] = totals[id].Add(weight(t))
	}

	best, top := core.NoAccount, decimal.Zero
	for _, id := range order {
		if totals[id].GreaterThan(top) {
			best, top = id, totals[id]
		}
	}
	return best
}

func countByName(ts []core.Transfer) []core.AccountCount {
	out := []core.AccountCount{}
	index := make(map[string]int)
	for _, t := range ts {
		name := t.FromAccount.Name
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, core.AccountCount{AccountName: name})
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func amountByName(ts []core.Transfer) []core.AccountAmount {
	out := []core.AccountAmount{}
	index := make(map[string]int)
	for _, t := range ts {
		name := t.FromAccount.Name
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, core.AccountAmount{AccountName: name, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount.GreaterThan(out[j].Amount) })
	return out
}

func dailyTrend(ts []core.Transfer, now time.Time, locale Locale) []core.DailyPoint {
	first := startOfDay(now).AddDate(0, 0, -6)
	out := make([]core.DailyPoint, 7)
	for i := range out {
		day := first.AddDate(0, 0, i)
		out[i] = core.DailyPoint{Date: locale.DayLabel(day), Amount: decimal.Zero}
		for _, t := range ts {
			if sameDay(t.Date, day) {
				out[i].Transactions++
				out[i].Amount = out[i].Amount.Add(t.Amount)
			}
		}
	}
	return out
}

// weekly compares the Sunday-start calendar week containing now with the
// week before it.
func weekly(ts []core.Transfer, now time.Time) core.WeeklySummary {
	start := startOfDay(now).AddDate(0, 0, -int(now.Weekday()))
	end := start.AddDate(0, 0, 7)
	prevStart := start.AddDate(0, 0, -7)

	var current []core.Transfer
	previous := decimal.Zero
	for _, t := range ts {
		switch {
		case !t.Date.Before(start) && t.Date.Before(end):
			current = append(current, t)
		case !t.Date.Before(prevStart) && t.Date.Before(start):
			previous = previous.Add(t.Amount)
		}
	}

	_, week := now.ISOWeek()
	total := sum(current)
	return core.WeeklySummary{
		WeekNumber:                 week,
		TotalTransactions:          len(current),
		TotalAmount:                total,
		ComparisonWithPreviousWeek: percentChange(total, previous),
		TopPerformingAccount:       leader(current, func(t core.Transfer) decimal.Decimal { return t.Amount }),
	}
}

// percentChange is 0 when there is nothing to compare against.
func percentChange(current, previous decimal.Decimal) float64 {
	if previous.IsZero() {
		return 0
	}
	return current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}

func trailing(ts []core.Transfer, now time.Time) []core.Transfer {
	from := now.Add(-trailingWindow)
	var out []core.Transfer
	for _, t := range ts {
		if !t.Date.Before(from) {
			out = append(out, t)
		}
	}
	return out
}

func hourHistogram(ts []core.Transfer, loc *time.Location) [24]int {
	var hours [24]int
	for _, t := range ts {
		hours[t.Date.In(loc).Hour()]++
	}
	return hours
}

func performance(recent []core.Transfer, hours [24]int) core.PerformanceMetrics {
	completed := 0
	for _, t := range recent {
		if t.Status == core.StatusCompleted {
			completed++
		}
	}
	rate := 100.0
	if len(recent) > 0 {
		rate = decimal.NewFromInt(int64(completed * 100)).
			DivRound(decimal.NewFromInt(int64(len(recent))), 2).InexactFloat64()
	}

	return core.PerformanceMetrics{
		TransactionVelocity: float64(len(recent)) / 24,
		AverageTransferSize: mean(sum(recent), len(recent)),
		PeakActivityHours:   peakHours(hours),
		SuccessRate:         rate,
	}
}

// peakHours lists every hour tied for the highest non-zero count.
func peakHours(hours [24]int) []string {
	top := 0
	for _, c := range hours {
		if c > top {
			top = c
		}
	}
	out := []string{}
	if top == 0 {
		return out
	}
	for h, c := range hours {
		if c == top {
			out = append(out, fmt.Sprintf("%02d:00", h))
		}
	}
	return out
}
