package core

import "github.com/shopspring/decimal"

// NoAccount is reported when no account qualifies for a "top" field.
const NoAccount = "N/A"

// AccountCount is a transfer count aggregated by account display name.
type AccountCount struct {
	AccountName string `json:"accountName"`
	Count       int    `json:"count"`
}

// AccountAmount is a transferred amount aggregated by account display name.
type AccountAmount struct {
	AccountName string          `json:"accountName"`
	Amount      decimal.Decimal `json:"amount"`
}

// DailyPoint is one day of the daily trend series.
type DailyPoint struct {
	Date         string          `json:"date"`
	Transactions int             `json:"transactions"`
	Amount       decimal.Decimal `json:"amount"`
}

// WeeklySummary compares the current calendar week with the previous one.
type WeeklySummary struct {
	WeekNumber                 int             `json:"weekNumber"`
	TotalTransactions          int             `json:"totalTransactions"`
	TotalAmount                decimal.Decimal `json:"totalAmount"`
	ComparisonWithPreviousWeek float64         `json:"comparisonWithPreviousWeek"`
	TopPerformingAccount       string          `json:"topPerformingAccount"`
}

// PerformanceMetrics describes activity over the trailing 24 hours.
type PerformanceMetrics struct {
	TransactionVelocity float64         `json:"transactionVelocity"`
	AverageTransferSize decimal.Decimal `json:"averageTransferSize"`
	PeakActivityHours   []string        `json:"peakActivityHours"`
	SuccessRate         float64         `json:"successRate"`
}

// DashboardStats is a derived snapshot; it is always recomputed wholesale.
type DashboardStats struct {
	TotalTransactions           int                        `json:"totalTransactions"`
	TotalAmount                 decimal.Decimal            `json:"totalAmount"`
	AccountWithMostTransactions string                     `json:"accountWithMostTransactions"`
	AverageTransaction          decimal.Decimal            `json:"averageTransaction"`
	TotalAmountByCurrency       map[string]decimal.Decimal `json:"totalAmountByCurrency"`
	TransactionsByHour          [24]int                    `json:"transactionsByHour"`
	TransactionsByAccount       []AccountCount             `json:"transactionsByAccount"`
	AmountByAccount             []AccountAmount            `json:"amountByAccount"`
	DailyTrend                  []DailyPoint               `json:"dailyTrend"`
	WeeklySummary               WeeklySummary              `json:"weeklySummary"`
	PerformanceMetrics          PerformanceMetrics         `json:"performanceMetrics"`
}
