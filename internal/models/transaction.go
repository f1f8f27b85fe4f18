package models

import (
	"time"

	"github.com/chingu-finance/scheduler/internal/schedule"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a transaction as money in or money out
type TransactionType string

const (
	TypeIncome  TransactionType = "INCOME"
	TypeExpense TransactionType = "EXPENSE"
)

// TransactionStatus is the lifecycle state of a transaction row
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
)

// DueTemplate is a recurring transaction template whose next due date has
// arrived (or was never scheduled). The materializer copies its fields into
// a new pending instance without touching the template's schedule.
type DueTemplate struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	AccountID         string            `json:"account_id"`
	Type              TransactionType   `json:"type"`
	Amount            decimal.Decimal   `json:"amount"`
	Description       string            `json:"description"`
	Category          string            `json:"category"`
	RecurringInterval schedule.Interval `json:"recurring_interval"`
	NextRecurringDate *time.Time        `json:"next_recurring_date,omitempty"`
	LastProcessed     *time.Time        `json:"last_processed,omitempty"`
}

// Transaction is the slim row shape consumed by the monthly report
// aggregation.
type Transaction struct {
	ID       string          `json:"id"`
	Type     TransactionType `json:"type"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Date     time.Time       `json:"date"`
}
