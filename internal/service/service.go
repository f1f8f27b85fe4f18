package service

import (
	"context"
	"time"

	"github.com/chingu-finance/scheduler/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Store is the record store adapter consumed by the jobs. Every logical
// operation is transactional on the adapter side.
type Store interface {
	FindBudgets(ctx context.Context) ([]models.BudgetWithOwner, error)
	SumExpenses(ctx context.Context, userID, accountID string, from, to time.Time) (decimal.Decimal, error)
	UpdateBudgetAlertSent(ctx context.Context, budgetID string, at time.Time) error
	FindDueTemplates(ctx context.Context, asOf time.Time) ([]models.DueTemplate, error)
	CreatePendingInstance(ctx context.Context, tpl models.DueTemplate, date time.Time) (string, error)
	SettleRecurring(ctx context.Context, transactionID, templateID string, now, nextDate time.Time) error
	FindUsers(ctx context.Context) ([]models.UserRef, error)
	FindMonthlyTransactions(ctx context.Context, userID string, from, to time.Time) ([]models.Transaction, error)
}

// Notifier dispatches outbound mail. Its return value gates throttle
// persistence on the alert path.
type Notifier interface {
	SendBudgetAlert(to, userName, accountName string, spent, limit decimal.Decimal, percentUsed float64) error
	SendMonthlyReport(to, userName, monthName string, stats models.MonthlyStats, insights models.Insights) error
}

// Summarizer produces the natural-language part of a monthly report.
type Summarizer interface {
	Summarize(ctx context.Context, stats models.MonthlyStats, monthName string) (models.Insights, error)
}

// Service handles business logic
type Service struct {
	store      Store
	notifier   Notifier
	summarizer Summarizer
	log        *logrus.Logger
}

// NewService initializes a new service
func NewService(store Store, notifier Notifier, summarizer Summarizer, log *logrus.Logger) *Service {
	return &Service{store: store, notifier: notifier, summarizer: summarizer, log: log}
}
