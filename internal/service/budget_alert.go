package service

import (
	"context"
	"fmt"
	"time"

	"github.com/chingu-finance/scheduler/internal/models"
	"github.com/shopspring/decimal"
)

// alertThresholdPercent is the share of the monthly limit that triggers a
// budget alert.
var alertThresholdPercent = decimal.NewFromInt(80)

// CheckBudgetAlerts evaluates every budget against this month's spending
// and alerts each owner at most once per calendar month. A failure on one
// budget is logged and does not stop the batch; only a failed batch fetch
// is returned to the caller.
func (s *Service) CheckBudgetAlerts(ctx context.Context, now time.Time) error {
	budgets, err := s.store.FindBudgets(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch budgets: %w", err)
	}

	for _, b := range budgets {
		// Incomplete setup, not an error
		if b.DefaultAccount == nil {
			continue
		}
		if err := s.checkBudget(ctx, b, now); err != nil {
			s.log.Errorf("Budget alert check failed for budget %s: %v", b.ID, err)
		}
	}
	return nil
}

func (s *Service) checkBudget(ctx context.Context, b models.BudgetWithOwner, now time.Time) error {
	if b.Amount.IsZero() {
		return nil
	}

	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	startOfNext := startOfMonth.AddDate(0, 1, 0)

	spent, err := s.store.SumExpenses(ctx, b.UserID, b.DefaultAccount.ID, startOfMonth, startOfNext)
	if err != nil {
		return fmt.Errorf("failed to sum expenses: %w", err)
	}

	percentUsed := spent.Div(b.Amount).Mul(decimal.NewFromInt(100))
	if percentUsed.LessThan(alertThresholdPercent) {
		return nil
	}
	if b.LastAlertSent != nil && !isNewMonth(*b.LastAlertSent, now) {
		// Already alerted this calendar month
		return nil
	}

	// Dispatch before persisting the throttle: a failed send must leave
	// last_alert_sent untouched so the next tick retries.
	err = s.notifier.SendBudgetAlert(b.UserEmail, b.UserName, b.DefaultAccount.Name,
		spent, b.Amount, percentUsed.InexactFloat64())
	if err != nil {
		return fmt.Errorf("failed to send budget alert: %w", err)
	}

	if err := s.store.UpdateBudgetAlertSent(ctx, b.ID, now); err != nil {
		return fmt.Errorf("failed to record alert timestamp: %w", err)
	}

	s.log.Infof("Budget alert sent for budget %s: %.1f%% of limit used", b.ID, percentUsed.InexactFloat64())
	return nil
}

// isNewMonth reports whether last falls in a different calendar month than
// now, which clears the once-per-month alert throttle.
func isNewMonth(last, now time.Time) bool {
	return last.Month() != now.Month() || last.Year() != now.Year()
}
