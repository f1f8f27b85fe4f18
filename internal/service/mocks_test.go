package service

import (
	"context"
	"io"
	"time"

	"github.com/chingu-finance/scheduler/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func newTestService(store Store, notifier Notifier, summarizer Summarizer) *Service {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewService(store, notifier, summarizer, log)
}

type settleCall struct {
	transactionID string
	templateID    string
	now           time.Time
	nextDate      time.Time
}

type mockStore struct {
	findBudgetsFn   func(ctx context.Context) ([]models.BudgetWithOwner, error)
	sumExpensesFn   func(ctx context.Context, userID, accountID string, from, to time.Time) (decimal.Decimal, error)
	updateAlertFn   func(ctx context.Context, budgetID string, at time.Time) error
	findDueFn       func(ctx context.Context, asOf time.Time) ([]models.DueTemplate, error)
	createPendingFn func(ctx context.Context, tpl models.DueTemplate, date time.Time) (string, error)
	settleFn        func(ctx context.Context, transactionID, templateID string, now, nextDate time.Time) error
	findUsersFn     func(ctx context.Context) ([]models.UserRef, error)
	findMonthlyFn   func(ctx context.Context, userID string, from, to time.Time) ([]models.Transaction, error)

	sumExpensesCalls   int
	updateAlertCalls   []string
	createPendingCalls []models.DueTemplate
	settleCalls        []settleCall
}

func (m *mockStore) FindBudgets(ctx context.Context) ([]models.BudgetWithOwner, error) {
	return m.findBudgetsFn(ctx)
}

func (m *mockStore) SumExpenses(ctx context.Context, userID, accountID string, from, to time.Time) (decimal.Decimal, error) {
	m.sumExpensesCalls++
	return m.sumExpensesFn(ctx, userID, accountID, from, to)
}

func (m *mockStore) UpdateBudgetAlertSent(ctx context.Context, budgetID string, at time.Time) error {
	m.updateAlertCalls = append(m.updateAlertCalls, budgetID)
	if m.updateAlertFn != nil {
		return m.updateAlertFn(ctx, budgetID, at)
	}
	return nil
}

func (m *mockStore) FindDueTemplates(ctx context.Context, asOf time.Time) ([]models.DueTemplate, error) {
	return m.findDueFn(ctx, asOf)
}

func (m *mockStore) CreatePendingInstance(ctx context.Context, tpl models.DueTemplate, date time.Time) (string, error) {
	m.createPendingCalls = append(m.createPendingCalls, tpl)
	return m.createPendingFn(ctx, tpl, date)
}

func (m *mockStore) SettleRecurring(ctx context.Context, transactionID, templateID string, now, nextDate time.Time) error {
	m.settleCalls = append(m.settleCalls, settleCall{transactionID, templateID, now, nextDate})
	if m.settleFn != nil {
		return m.settleFn(ctx, transactionID, templateID, now, nextDate)
	}
	return nil
}

func (m *mockStore) FindUsers(ctx context.Context) ([]models.UserRef, error) {
	return m.findUsersFn(ctx)
}

func (m *mockStore) FindMonthlyTransactions(ctx context.Context, userID string, from, to time.Time) ([]models.Transaction, error) {
	return m.findMonthlyFn(ctx, userID, from, to)
}

type alertCall struct {
	to          string
	accountName string
	spent       decimal.Decimal
	limit       decimal.Decimal
	percentUsed float64
}

type reportCall struct {
	to        string
	monthName string
	stats     models.MonthlyStats
	insights  models.Insights
}

type mockNotifier struct {
	alertErr  func(to string) error
	reportErr func(to string) error

	alerts  []alertCall
	reports []reportCall
}

func (m *mockNotifier) SendBudgetAlert(to, userName, accountName string, spent, limit decimal.Decimal, percentUsed float64) error {
	if m.alertErr != nil {
		if err := m.alertErr(to); err != nil {
			return err
		}
	}
	m.alerts = append(m.alerts, alertCall{to, accountName, spent, limit, percentUsed})
	return nil
}

func (m *mockNotifier) SendMonthlyReport(to, userName, monthName string, stats models.MonthlyStats, insights models.Insights) error {
	if m.reportErr != nil {
		if err := m.reportErr(to); err != nil {
			return err
		}
	}
	m.reports = append(m.reports, reportCall{to, monthName, stats, insights})
	return nil
}

type mockSummarizer struct {
	summarizeFn func(ctx context.Context, stats models.MonthlyStats, monthName string) (models.Insights, error)
	calls       int
}

func (m *mockSummarizer) Summarize(ctx context.Context, stats models.MonthlyStats, monthName string) (models.Insights, error) {
	m.calls++
	return m.summarizeFn(ctx, stats, monthName)
}
