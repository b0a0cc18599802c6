package stats

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"transferdash/internal/core"
)

// Wednesday, ISO week 11.
var now = time.Date(2025, 3, 12, 14, 0, 0, 0, time.UTC)

func account(id, name, currency string) core.Account {
	return core.Account{ID: id, Name: name, Currency: currency}
}

func tr(id string, from core.Account, amount string, at time.Time) core.Transfer {
	return core.Transfer{
		ID:          id,
		FromAccount: from,
		ToAccount:   account("9", "Receiver", "USD"),
		Amount:      decimal.RequireFromString(amount),
		Date:        at,
		Status:      core.StatusCompleted,
	}
}

var (
	juan  = account("1", "Juan Pérez", "USD")
	maria = account("2", "María García", "EUR")
	ana   = account("4", "Ana Martínez", "USD")
)

func TestComputeEmptyLedger(t *testing.T) {
	s := Compute(nil, nil, now)

	if s.TotalTransactions != 0 || !s.TotalAmount.IsZero() || !s.AverageTransaction.IsZero() {
		t.Fatalf("expected zero totals, got %+v", s)
	}
	if s.AccountWithMostTransactions != core.NoAccount {
		t.Fatalf("expected N/A, got %q", s.AccountWithMostTransactions)
	}
	if s.TotalAmountByCurrency == nil || len(s.TotalAmountByCurrency) != 0 {
		t.Fatalf("expected empty currency map, got %v", s.TotalAmountByCurrency)
	}
	if s.WeeklySummary.TopPerformingAccount != core.NoAccount || s.WeeklySummary.ComparisonWithPreviousWeek != 0 {
		t.Fatalf("unexpected weekly summary: %+v", s.WeeklySummary)
	}
	if len(s.PerformanceMetrics.PeakActivityHours) != 0 || s.PerformanceMetrics.SuccessRate != 100 {
		t.Fatalf("unexpected metrics: %+v", s.PerformanceMetrics)
	}

	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var generic map[string]any
	_ = json.Unmarshal(raw, &generic)
	for _, key := range []string{"transactionsByAccount", "amountByAccount"} {
		if list, ok := generic[key].([]any); !ok || len(list) != 0 {
			t.Fatalf("%s should encode as an empty array, got %v", key, generic[key])
		}
	}
}

func TestComputeSingleTransferToday(t *testing.T) {
	s := Compute([]core.Transfer{tr("a", juan, "100", now.Add(-time.Hour))}, nil, now)

	if s.TotalTransactions != 1 || !s.TotalAmount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected totals: %d %s", s.TotalTransactions, s.TotalAmount)
	}
	if !s.AverageTransaction.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected average: %s", s.AverageTransaction)
	}
	if len(s.TotalAmountByCurrency) != 1 || !s.TotalAmountByCurrency["USD"].Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected currency map: %v", s.TotalAmountByCurrency)
	}
	if s.AccountWithMostTransactions != "1" {
		t.Fatalf("unexpected leader: %q", s.AccountWithMostTransactions)
	}
}

func TestComputeGroupsByDisplayName(t *testing.T) {
	ts := []core.Transfer{
		tr("a", juan, "50", now.Add(-2*time.Hour)),
		tr("b", juan, "150", now.Add(-time.Hour)),
	}
	s := Compute(ts, nil, now)

	want := []core.AccountAmount{{AccountName: "Juan Pérez", Amount: decimal.NewFromInt(200)}}
	if len(s.AmountByAccount) != 1 || s.AmountByAccount[0].AccountName != want[0].AccountName ||
		!s.AmountByAccount[0].Amount.Equal(want[0].Amount) {
		t.Fatalf("unexpected amounts: %+v", s.AmountByAccount)
	}
	if !reflect.DeepEqual(s.TransactionsByAccount, []core.AccountCount{{AccountName: "Juan Pérez", Count: 2}}) {
		t.Fatalf("unexpected counts: %+v", s.TransactionsByAccount)
	}

	twin := account("7", "Juan Pérez", "USD")
	s = Compute(append(ts, tr("c", twin, "1", now.Add(-time.Minute))), nil, now)
	if len(s.TransactionsByAccount) != 1 || s.TransactionsByAccount[0].Count != 3 {
		t.Fatalf("accounts sharing a name should collide: %+v", s.TransactionsByAccount)
	}
}

func TestApplyMinAmount(t *testing.T) {
	ts := []core.Transfer{
		tr("a", juan, "50", now),
		tr("b", juan, "100", now),
		tr("c", juan, "150", now),
	}
	lo := decimal.NewFromInt(100)
	got := Apply(ts, &core.ReportFilter{MinAmount: &lo})
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Fatalf("unexpected filtered set: %+v", got)
	}
}

func TestApplyFilterDimensions(t *testing.T) {
	in := tr("a", juan, "20", now)
	in.ToAccount = maria
	ts := []core.Transfer{
		in,
		tr("b", ana, "30", now.AddDate(0, 0, -3)),
		tr("c", maria, "40", now.AddDate(0, 0, -10)),
	}
	hi := decimal.NewFromInt(30)
	week := core.PresetRange(core.RangeWeek, now)

	cases := []struct {
		name string
		f    *core.ReportFilter
		want []string
	}{
		{"nil filter", nil, []string{"a", "b", "c"}},
		{"empty filter", &core.ReportFilter{}, []string{"a", "b", "c"}},
		{"receiver matches", &core.ReportFilter{Accounts: []string{"2"}}, []string{"a", "c"}},
		{"sender matches", &core.ReportFilter{Accounts: []string{"4"}}, []string{"b"}},
		{"max amount inclusive", &core.ReportFilter{MaxAmount: &hi}, []string{"a", "b"}},
		{"date range", &core.ReportFilter{DateRange: &week}, []string{"a", "b"}},
		{"exact range bounds", &core.ReportFilter{DateRange: &core.DateRange{Start: now, End: now}}, []string{"a"}},
		{"incoming is pass-through", &core.ReportFilter{TransactionType: core.TransactionIncoming}, []string{"a", "b", "c"}},
		{"outgoing is pass-through", &core.ReportFilter{TransactionType: core.TransactionOutgoing}, []string{"a", "b", "c"}},
	}
	for _, tc := range cases {
		var ids []string
		for _, t := range Apply(ts, tc.f) {
			ids = append(ids, t.ID)
		}
		if !reflect.DeepEqual(ids, tc.want) {
			t.Fatalf("%s: want %v, got %v", tc.name, tc.want, ids)
		}
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	ts := []core.Transfer{
		tr("a", juan, "10.50", now.Add(-time.Hour)),
		tr("b", maria, "99.99", now.Add(-3*time.Hour)),
		tr("c", ana, "5", now.AddDate(0, 0, -2)),
		tr("d", juan, "70", now.AddDate(0, 0, -8)),
	}
	lo := decimal.NewFromInt(1)
	f := &core.ReportFilter{MinAmount: &lo}

	first, _ := json.Marshal(Compute(ts, f, now))
	second, _ := json.Marshal(Compute(ts, f, now))
	if string(first) != string(second) {
		t.Fatalf("outputs differ:\n%s\n%s", first, second)
	}
}

func TestPerAccountListsSortedAndComplete(t *testing.T) {
	ts := []core.Transfer{
		tr("a", juan, "10", now.Add(-5*time.Hour)),
		tr("b", maria, "500", now.Add(-4*time.Hour)),
		tr("c", ana, "20", now.Add(-3*time.Hour)),
		tr("d", ana, "20", now.Add(-2*time.Hour)),
		tr("e", maria, "1", now.Add(-time.Hour)),
		tr("f", ana, "1", now.Add(-time.Minute)),
		tr("old", juan, "1000", now.AddDate(0, 0, -1)),
	}
	s := Compute(ts, nil, now)

	total := 0
	for i, c := range s.TransactionsByAccount {
		total += c.Count
		if i > 0 && c.Count > s.TransactionsByAccount[i-1].Count {
			t.Fatalf("counts not sorted: %+v", s.TransactionsByAccount)
		}
	}
	if total != s.TotalTransactions || total != 6 {
		t.Fatalf("counts sum to %d, want %d", total, s.TotalTransactions)
	}
	for i := 1; i < len(s.AmountByAccount); i++ {
		if s.AmountByAccount[i].Amount.GreaterThan(s.AmountByAccount[i-1].Amount) {
			t.Fatalf("amounts not sorted: %+v", s.AmountByAccount)
		}
	}
	if s.AmountByAccount[0].AccountName != "María García" {
		t.Fatalf("unexpected top amount: %+v", s.AmountByAccount)
	}
	if !s.TotalAmountByCurrency["EUR"].Equal(decimal.NewFromInt(501)) || !s.TotalAmountByCurrency["USD"].Equal(decimal.NewFromInt(51)) {
		t.Fatalf("unexpected currency map: %v", s.TotalAmountByCurrency)
	}
}

func TestStableSortKeepsEncounterOrderOnTies(t *testing.T) {
	ts := []core.Transfer{
		tr("a", maria, "10", now.Add(-time.Hour)),
		tr("b", juan, "10", now.Add(-time.Hour)),
	}
	s := Compute(ts, nil, now)
	if s.TransactionsByAccount[0].AccountName != "María García" || s.AmountByAccount[0].AccountName != "María García" {
		t.Fatalf("tie should keep encounter order: %+v %+v", s.TransactionsByAccount, s.AmountByAccount)
	}
}

func TestAccountWithMostTransactionsTieBreak(t *testing.T) {
	ts := []core.Transfer{
		tr("a", maria, "1", now.Add(-3*time.Hour)),
		tr("b", juan, "1", now.Add(-2*time.Hour)),
		tr("c", juan, "1", now.Add(-time.Hour)),
		tr("d", maria, "1", now.Add(-time.Minute)),
	}
	if got := Compute(ts, nil, now).AccountWithMostTransactions; got != "2" {
		t.Fatalf("first encountered leader should win the tie, got %q", got)
	}

	ts = append(ts, tr("e", juan, "1", now))
	if got := Compute(ts, nil, now).AccountWithMostTransactions; got != "1" {
		t.Fatalf("strictly larger count should win, got %q", got)
	}
}

func TestTransactionsByHourUsesTrailingWindow(t *testing.T) {
	ts := []core.Transfer{
		tr("a", juan, "1", now.Add(-time.Hour)),    // 13h today
		tr("b", juan, "1", now.Add(-23*time.Hour)), // 15h yesterday
		tr("c", juan, "1", now.Add(-24*time.Hour)), // exactly at the boundary
		tr("d", juan, "1", now.Add(-25*time.Hour)), // outside
		tr("e", juan, "1", now.Add(-23*time.Hour+time.Minute)),
	}
	s := Compute(ts, nil, now)

	var want [24]int
	want[13] = 1
	want[15] = 2
	want[14] = 1
	if s.TransactionsByHour != want {
		t.Fatalf("unexpected histogram: %v", s.TransactionsByHour)
	}
	if s.TotalTransactions != 1 {
		t.Fatalf("only one transfer is dated today, got %d", s.TotalTransactions)
	}

	pm := s.PerformanceMetrics
	if pm.TransactionVelocity != 4.0/24 {
		t.Fatalf("unexpected velocity: %v", pm.TransactionVelocity)
	}
	if !reflect.DeepEqual(pm.PeakActivityHours, []string{"15:00"}) {
		t.Fatalf("unexpected peaks: %v", pm.PeakActivityHours)
	}
	if !pm.AverageTransferSize.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("unexpected average size: %s", pm.AverageTransferSize)
	}
}

func TestHistogramUsesLocalHour(t *testing.T) {
	madrid := time.FixedZone("CET", 3600)
	localNow := now.In(madrid)
	s := Compute([]core.Transfer{tr("a", juan, "1", now.Add(-time.Hour))}, nil, localNow)
	if s.TransactionsByHour[14] != 1 {
		t.Fatalf("expected bucket 14 in CET, got %v", s.TransactionsByHour)
	}
}

func TestPeakHoursListsEveryTie(t *testing.T) {
	ts := []core.Transfer{
		tr("a", juan, "1", time.Date(2025, 3, 12, 9, 5, 0, 0, time.UTC)),
		tr("b", juan, "1", time.Date(2025, 3, 12, 11, 5, 0, 0, time.UTC)),
		tr("c", juan, "1", time.Date(2025, 3, 12, 2, 5, 0, 0, time.UTC)),
	}
	got := Compute(ts, nil, now).PerformanceMetrics.PeakActivityHours
	if !reflect.DeepEqual(got, []string{"02:00", "09:00", "11:00"}) {
		t.Fatalf("unexpected peaks: %v", got)
	}
}

func TestSuccessRateFromStatuses(t *testing.T) {
	failed := tr("b", juan, "1", now.Add(-time.Hour))
	failed.Status = core.StatusFailed
	pending := tr("c", juan, "1", now.Add(-time.Hour))
	pending.Status = core.StatusPending
	ts := []core.Transfer{tr("a", juan, "1", now.Add(-time.Hour)), failed, pending}

	if got := Compute(ts, nil, now).PerformanceMetrics.SuccessRate; got != 33.33 {
		t.Fatalf("unexpected success rate: %v", got)
	}
}

func TestDailyTrend(t *testing.T) {
	ts := []core.Transfer{
		tr("a", juan, "10", now),
		tr("b", juan, "5", now.Add(-time.Hour)),
		tr("c", juan, "7", time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC)),
		tr("d", juan, "100", time.Date(2025, 3, 5, 23, 59, 0, 0, time.UTC)),
	}
	trend := Compute(ts, nil, now).DailyTrend
	if len(trend) != 7 {
		t.Fatalf("expected 7 days, got %d", len(trend))
	}
	if trend[0].Date != "jue, 6 mar" || trend[6].Date != "mié, 12 mar" {
		t.Fatalf("unexpected labels: %q .. %q", trend[0].Date, trend[6].Date)
	}
	if trend[0].Transactions != 1 || !trend[0].Amount.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("unexpected oldest day: %+v", trend[0])
	}
	if trend[6].Transactions != 2 || !trend[6].Amount.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("unexpected today: %+v", trend[6])
	}
	for _, d := range trend[1:6] {
		if d.Transactions != 0 || !d.Amount.IsZero() {
			t.Fatalf("expected empty day: %+v", d)
		}
	}

	en := Compute(ts, nil, now, WithLocale(LocaleEN)).DailyTrend
	if en[6].Date != "Wed, Mar 12" {
		t.Fatalf("unexpected english label: %q", en[6].Date)
	}
}

func TestWeeklySummary(t *testing.T) {
	ts := []core.Transfer{
		tr("a", juan, "100", time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)),   // Sunday, current week
		tr("b", maria, "200", time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC)), // current week
		tr("c", juan, "100", time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)),  // current week
		tr("d", ana, "200", time.Date(2025, 3, 8, 23, 0, 0, 0, time.UTC)),   // Saturday, previous week
		tr("e", ana, "50", time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC)),    // two weeks ago
	}
	w := Compute(ts, nil, now).WeeklySummary

	if w.WeekNumber != 11 {
		t.Fatalf("unexpected week number %d", w.WeekNumber)
	}
	if w.TotalTransactions != 3 || !w.TotalAmount.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("unexpected current week totals: %+v", w)
	}
	if w.ComparisonWithPreviousWeek != 100 {
		t.Fatalf("unexpected comparison: %v", w.ComparisonWithPreviousWeek)
	}
	if w.TopPerformingAccount != "1" {
		t.Fatalf("tie on amount should keep the first account, got %q", w.TopPerformingAccount)
	}
}

func TestWeeklyComparisonWithoutPreviousWeek(t *testing.T) {
	ts := []core.Transfer{tr("a", juan, "100", now)}
	if got := Compute(ts, nil, now).WeeklySummary.ComparisonWithPreviousWeek; got != 0 {
		t.Fatalf("expected 0 with empty previous week, got %v", got)
	}
}

func TestParseLocale(t *testing.T) {
	cases := map[string]Locale{"en": LocaleEN, "en-US": LocaleEN, "EN_gb": LocaleEN, "es": LocaleES, "": LocaleES, "fr": LocaleES}
	for in, want := range cases {
		if got := ParseLocale(in); got != want {
			t.Fatalf("%q: want %s, got %s", in, want, got)
		}
	}
}
