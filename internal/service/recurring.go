package service

import (
	"context"
	"fmt"
	"time"

	"github.com/chingu-finance/scheduler/internal/models"
	"github.com/chingu-finance/scheduler/internal/schedule"
)

// MaterializeDueTemplates creates one PENDING instance for every recurring
// template that is due as of now. The template's own schedule is left
// alone; it only advances when the user approves the instance. Creation
// failures are isolated per template.
func (s *Service) MaterializeDueTemplates(ctx context.Context, now time.Time) error {
	templates, err := s.store.FindDueTemplates(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to fetch due templates: %w", err)
	}

	created := 0
	for _, tpl := range templates {
		id, err := s.store.CreatePendingInstance(ctx, tpl, now)
		if err != nil {
			s.log.Errorf("Failed to materialize template %s: %v", tpl.ID, err)
			continue
		}
		s.log.Debugf("Materialized pending transaction %s from template %s", id, tpl.ID)
		created++
	}

	s.log.Infof("Materialized %d pending transactions from %d due templates", created, len(templates))
	return nil
}

// SettleRecurring finalizes the pending instance named by an approval
// event and advances its template by one interval. The store performs both
// writes in a single transaction, so the whole operation either lands or
// is retryable. A replayed event surfaces repository.ErrAlreadySettled and
// never advances the template twice.
func (s *Service) SettleRecurring(ctx context.Context, ev models.ApprovalEvent, now time.Time) error {
	nextDate, err := schedule.NextDate(now, ev.RecurringInterval)
	if err != nil {
		return fmt.Errorf("failed to compute next due date for template %s: %w", ev.RecurringTemplateID, err)
	}

	err = s.store.SettleRecurring(ctx, ev.TransactionID, ev.RecurringTemplateID, now, nextDate)
	if err != nil {
		return fmt.Errorf("failed to settle transaction %s: %w", ev.TransactionID, err)
	}

	s.log.Infof("Settled transaction %s, template %s next due %s",
		ev.TransactionID, ev.RecurringTemplateID, nextDate.Format("2006-01-02"))
	return nil
}
