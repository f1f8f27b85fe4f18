package models

import "github.com/chingu-finance/scheduler/internal/schedule"

// ApprovalEvent is the payload delivered by the trigger source when a user
// approves a pending recurring instance.
type ApprovalEvent struct {
	TransactionID       string            `json:"transactionId"`
	RecurringTemplateID string            `json:"recurringTemplateId"`
	RecurringInterval   schedule.Interval `json:"recurringInterval"`
	UserID              string            `json:"userId"`
}
