package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/chingu-finance/scheduler/internal/models"
	"github.com/shopspring/decimal"
)

// SendMonthlyReports aggregates the previous calendar month per user and
// dispatches one report each. The AI summary is best-effort: any error or
// incomplete response from the summarizer falls back to the rule-based
// insights. One user's failure does not block the rest.
func (s *Service) SendMonthlyReports(ctx context.Context, now time.Time) error {
	users, err := s.store.FindUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch users: %w", err)
	}

	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prevStart := startOfMonth.AddDate(0, -1, 0)
	monthName := prevStart.Month().String()

	sent := 0
	for _, u := range users {
		if err := s.sendReport(ctx, u, prevStart, startOfMonth, monthName); err != nil {
			s.log.Errorf("Failed to send monthly report to user %s: %v", u.ID, err)
			continue
		}
		sent++
	}

	s.log.Infof("Sent %d of %d monthly reports for %s", sent, len(users), monthName)
	return nil
}

func (s *Service) sendReport(ctx context.Context, u models.UserRef, from, to time.Time, monthName string) error {
	txns, err := s.store.FindMonthlyTransactions(ctx, u.ID, from, to)
	if err != nil {
		return fmt.Errorf("failed to fetch transactions: %w", err)
	}

	stats := computeMonthlyStats(txns)

	insights, err := s.summarizer.Summarize(ctx, stats, monthName)
	if err != nil || !insights.Complete() {
		if err != nil {
			s.log.Warnf("Summarizer failed for user %s, using rule-based insights: %v", u.ID, err)
		} else {
			s.log.Warnf("Summarizer returned incomplete insights for user %s, using rule-based insights", u.ID)
		}
		insights = fallbackInsights(stats, monthName)
	}

	if err := s.notifier.SendMonthlyReport(u.Email, u.Name, monthName, stats, insights); err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}
	return nil
}

// computeMonthlyStats folds raw transactions into the report aggregate.
// Category totals cover expenses only.
func computeMonthlyStats(txns []models.Transaction) models.MonthlyStats {
	stats := models.MonthlyStats{
		TotalIncome:      decimal.Zero,
		TotalExpenses:    decimal.Zero,
		ByCategory:       make(map[string]decimal.Decimal),
		TransactionCount: len(txns),
	}
	for _, t := range txns {
		switch t.Type {
		case models.TypeIncome:
			stats.TotalIncome = stats.TotalIncome.Add(t.Amount)
		case models.TypeExpense:
			stats.TotalExpenses = stats.TotalExpenses.Add(t.Amount)
			stats.ByCategory[t.Category] = stats.ByCategory[t.Category].Add(t.Amount)
		}
	}
	return stats
}

// fallbackInsights builds a deterministic summary from the aggregate when
// the AI generator is unavailable or returns a malformed response.
func fallbackInsights(stats models.MonthlyStats, monthName string) models.Insights {
	net := stats.TotalIncome.Sub(stats.TotalExpenses)

	summary := fmt.Sprintf("In %s you recorded %d transactions: %s in income and %s in expenses.",
		monthName, stats.TransactionCount,
		stats.TotalIncome.StringFixed(2), stats.TotalExpenses.StringFixed(2))

	topCategory := topSpendingCategory(stats.ByCategory)
	var topInsight string
	if topCategory == "" {
		topInsight = fmt.Sprintf("You had no categorized spending in %s.", monthName)
	} else {
		topInsight = fmt.Sprintf("Your biggest spending category was %s at %s.",
			topCategory, stats.ByCategory[topCategory].StringFixed(2))
	}

	var savingsInsight string
	switch {
	case net.IsPositive():
		savingsInsight = fmt.Sprintf("You saved %s this month.", net.StringFixed(2))
	case net.IsNegative():
		savingsInsight = fmt.Sprintf("You spent %s more than you earned this month.", net.Neg().StringFixed(2))
	default:
		savingsInsight = "You broke even this month."
	}

	return models.Insights{
		Summary:            summary,
		TopCategoryInsight: topInsight,
		SavingsInsight:     savingsInsight,
	}
}

// topSpendingCategory picks the category with the largest total; ties go
// to the lexicographically smallest name so the fallback stays
// deterministic.
func topSpendingCategory(byCategory map[string]decimal.Decimal) string {
	names := make([]string, 0, len(byCategory))
	for name := range byCategory {
		names = append(names, name)
	}
	sort.Strings(names)

	top := ""
	max := decimal.Zero
	for _, name := range names {
		if byCategory[name].GreaterThan(max) {
			top = name
			max = byCategory[name]
		}
	}
	return top
}
