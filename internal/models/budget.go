package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetWithOwner is a budget row joined with its owner and the owner's
// default account, as returned by the alert batch query.
type BudgetWithOwner struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Amount        decimal.Decimal `json:"amount"` // monthly spending limit
	LastAlertSent *time.Time      `json:"last_alert_sent,omitempty"`
	UserID        string          `json:"user_id"`
	UserName      string          `json:"user_name"`
	UserEmail     string          `json:"user_email"`
	// DefaultAccount is nil when the owner has not marked an account as
	// default; such budgets are skipped by the alert evaluator.
	DefaultAccount *AccountRef `json:"default_account,omitempty"`
}
