package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/chingu-finance/scheduler/internal/models"
	"github.com/chingu-finance/scheduler/internal/repository"
	"github.com/chingu-finance/scheduler/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func templateFixture(id string, iv schedule.Interval) models.DueTemplate {
	return models.DueTemplate{
		ID:                id,
		UserID:            "user-1",
		AccountID:         "acct-1",
		Type:              models.TypeExpense,
		Amount:            money("9.99"),
		Description:       "Streaming subscription",
		Category:          "Entertainment",
		RecurringInterval: iv,
	}
}

func TestMaterializeDueTemplates_CreatesPendingInstances(t *testing.T) {
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	tpl := templateFixture("tpl-1", schedule.IntervalMonthly)
	store := &mockStore{
		findDueFn: func(ctx context.Context, asOf time.Time) ([]models.DueTemplate, error) {
			assert.Equal(t, now, asOf)
			return []models.DueTemplate{tpl}, nil
		},
		createPendingFn: func(ctx context.Context, tpl models.DueTemplate, date time.Time) (string, error) {
			assert.Equal(t, now, date)
			return "pending-1", nil
		},
	}
	svc := newTestService(store, &mockNotifier{}, nil)

	err := svc.MaterializeDueTemplates(context.Background(), now)
	require.NoError(t, err)

	require.Len(t, store.createPendingCalls, 1)
	assert.Equal(t, "tpl-1", store.createPendingCalls[0].ID)
	assert.Empty(t, store.settleCalls, "materialization never advances a template")
}

func TestMaterializeDueTemplates_CreationErrorIsolated(t *testing.T) {
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	store := &mockStore{
		findDueFn: func(ctx context.Context, asOf time.Time) ([]models.DueTemplate, error) {
			return []models.DueTemplate{
				templateFixture("tpl-1", schedule.IntervalDaily),
				templateFixture("tpl-2", schedule.IntervalWeekly),
				templateFixture("tpl-3", schedule.IntervalMonthly),
			}, nil
		},
		createPendingFn: func(ctx context.Context, tpl models.DueTemplate, date time.Time) (string, error) {
			if tpl.ID == "tpl-2" {
				return "", errors.New("insert failed")
			}
			return "pending-" + tpl.ID, nil
		},
	}
	svc := newTestService(store, &mockNotifier{}, nil)

	err := svc.MaterializeDueTemplates(context.Background(), now)
	require.NoError(t, err)

	assert.Len(t, store.createPendingCalls, 3, "tpl-3 still attempted after tpl-2 failed")
}

func TestMaterializeDueTemplates_FetchFails(t *testing.T) {
	store := &mockStore{
		findDueFn: func(ctx context.Context, asOf time.Time) ([]models.DueTemplate, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := newTestService(store, &mockNotifier{}, nil)

	err := svc.MaterializeDueTemplates(context.Background(), time.Now())
	assert.Error(t, err)
}

func TestSettleRecurring_AdvancesTemplate(t *testing.T) {
	now := time.Date(2024, time.January, 31, 12, 0, 0, 0, time.UTC)
	store := &mockStore{}
	svc := newTestService(store, &mockNotifier{}, nil)

	ev := models.ApprovalEvent{
		TransactionID:       "tx-1",
		RecurringTemplateID: "tpl-1",
		RecurringInterval:   schedule.IntervalMonthly,
		UserID:              "user-1",
	}
	err := svc.SettleRecurring(context.Background(), ev, now)
	require.NoError(t, err)

	require.Len(t, store.settleCalls, 1)
	call := store.settleCalls[0]
	assert.Equal(t, "tx-1", call.transactionID)
	assert.Equal(t, "tpl-1", call.templateID)
	assert.Equal(t, now, call.now)
	// Jan 31 + 1 month rolls into March in a leap year
	assert.Equal(t, time.Date(2024, time.March, 2, 12, 0, 0, 0, time.UTC), call.nextDate)
}

func TestSettleRecurring_InvalidInterval(t *testing.T) {
	store := &mockStore{}
	svc := newTestService(store, &mockNotifier{}, nil)

	ev := models.ApprovalEvent{
		TransactionID:       "tx-1",
		RecurringTemplateID: "tpl-1",
		RecurringInterval:   schedule.Interval("FORTNIGHTLY"),
		UserID:              "user-1",
	}
	err := svc.SettleRecurring(context.Background(), ev, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, schedule.ErrInvalidInterval))
	assert.Empty(t, store.settleCalls, "store untouched on interval validation failure")
}

func TestSettleRecurring_AlreadySettled(t *testing.T) {
	store := &mockStore{
		settleFn: func(ctx context.Context, transactionID, templateID string, now, nextDate time.Time) error {
			return fmt.Errorf("%w: %s", repository.ErrAlreadySettled, transactionID)
		},
	}
	svc := newTestService(store, &mockNotifier{}, nil)

	ev := models.ApprovalEvent{
		TransactionID:       "tx-1",
		RecurringTemplateID: "tpl-1",
		RecurringInterval:   schedule.IntervalMonthly,
		UserID:              "user-1",
	}
	err := svc.SettleRecurring(context.Background(), ev, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrAlreadySettled))
	assert.Len(t, store.settleCalls, 1, "conflict detected inside the single store call, no second advance")
}

func TestSettleRecurring_TransactionNotFound(t *testing.T) {
	store := &mockStore{
		settleFn: func(ctx context.Context, transactionID, templateID string, now, nextDate time.Time) error {
			return fmt.Errorf("%w: %s", repository.ErrTransactionNotFound, transactionID)
		},
	}
	svc := newTestService(store, &mockNotifier{}, nil)

	ev := models.ApprovalEvent{
		TransactionID:       "tx-missing",
		RecurringTemplateID: "tpl-1",
		RecurringInterval:   schedule.IntervalDaily,
		UserID:              "user-1",
	}
	err := svc.SettleRecurring(context.Background(), ev, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrTransactionNotFound))
}
