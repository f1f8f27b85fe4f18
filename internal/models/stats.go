package models

import "github.com/shopspring/decimal"

// MonthlyStats is the per-user aggregate computed for a report cycle. It is
// recomputed from raw transactions each run and never persisted.
type MonthlyStats struct {
	TotalIncome      decimal.Decimal            `json:"total_income"`
	TotalExpenses    decimal.Decimal            `json:"total_expenses"`
	ByCategory       map[string]decimal.Decimal `json:"by_category"`
	TransactionCount int                        `json:"transaction_count"`
}

// Insights is the natural-language summary attached to a monthly report.
type Insights struct {
	Summary            string `json:"summary"`
	TopCategoryInsight string `json:"topCategoryInsight"`
	SavingsInsight     string `json:"savingsInsight"`
}

// Complete reports whether all three insight fields are populated.
func (i Insights) Complete() bool {
	return i.Summary != "" && i.TopCategoryInsight != "" && i.SavingsInsight != ""
}
