package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chingu-finance/scheduler/internal/models"
	"github.com/shopspring/decimal"
)

// Sentinel errors for settlement reference failures. The caller decides
// whether they are retryable.
var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrTemplateNotFound    = errors.New("recurring template not found")
	ErrAlreadySettled      = errors.New("transaction already settled")
)

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FindBudgets returns every budget joined with its owner and the owner's
// default account. Budgets whose owner has no default account come back
// with a nil DefaultAccount.
func (r *Repository) FindBudgets(ctx context.Context) ([]models.BudgetWithOwner, error) {
	query := `
		SELECT b.id, b.name, b.amount, b.last_alert_sent,
		       u.id, u.name, u.email,
		       a.id, a.name
		FROM finance.budgets b
		JOIN finance.users u ON u.id = b.user_id
		LEFT JOIN finance.accounts a ON a.user_id = u.id AND a.is_default = TRUE
		ORDER BY b.id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	var budgets []models.BudgetWithOwner
	for rows.Next() {
		var b models.BudgetWithOwner
		var lastAlertSent sql.NullTime
		var accountID, accountName sql.NullString
		err := rows.Scan(&b.ID, &b.Name, &b.Amount, &lastAlertSent,
			&b.UserID, &b.UserName, &b.UserEmail, &accountID, &accountName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		if lastAlertSent.Valid {
			t := lastAlertSent.Time
			b.LastAlertSent = &t
		}
		if accountID.Valid {
			b.DefaultAccount = &models.AccountRef{ID: accountID.String, Name: accountName.String}
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate budgets: %w", err)
	}
	return budgets, nil
}

// SumExpenses sums EXPENSE transactions for an account within [from, to).
func (r *Repository) SumExpenses(ctx context.Context, userID, accountID string, from, to time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM finance.transactions
		WHERE user_id = $1 AND account_id = $2 AND type = 'EXPENSE'
		  AND date >= $3 AND date < $4`
	var sum decimal.Decimal
	err := r.db.QueryRowContext(ctx, query, userID, accountID, from, to).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum expenses: %w", err)
	}
	return sum, nil
}

// UpdateBudgetAlertSent stamps the month throttle after a successful alert
// dispatch.
func (r *Repository) UpdateBudgetAlertSent(ctx context.Context, budgetID string, at time.Time) error {
	query := `
		UPDATE finance.budgets
		SET last_alert_sent = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, budgetID, at)
	if err != nil {
		return fmt.Errorf("failed to update budget alert timestamp: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("budget %s not found", budgetID)
	}
	return nil
}

// FindDueTemplates returns recurring templates whose next due date has
// arrived or was never set. Templates that already have an unresolved
// pending instance are excluded, so re-running materialization before the
// user approves cannot stack duplicates.
func (r *Repository) FindDueTemplates(ctx context.Context, asOf time.Time) ([]models.DueTemplate, error) {
	query := `
		SELECT t.id, t.user_id, t.account_id, t.type, t.amount, t.description,
		       t.category, t.recurring_interval, t.next_recurring_date, t.last_processed
		FROM finance.transactions t
		WHERE t.is_recurring = TRUE
		  AND t.status = 'COMPLETED'
		  AND (t.next_recurring_date <= $1 OR t.next_recurring_date IS NULL)
		  AND NOT EXISTS (
		      SELECT 1 FROM finance.transactions p
		      WHERE p.recurring_template_id = t.id AND p.status = 'PENDING')
		ORDER BY t.id`
	rows, err := r.db.QueryContext(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query due templates: %w", err)
	}
	defer rows.Close()

	var templates []models.DueTemplate
	for rows.Next() {
		var t models.DueTemplate
		var nextDue, lastProcessed sql.NullTime
		err := rows.Scan(&t.ID, &t.UserID, &t.AccountID, &t.Type, &t.Amount,
			&t.Description, &t.Category, &t.RecurringInterval, &nextDue, &lastProcessed)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		if nextDue.Valid {
			d := nextDue.Time
			t.NextRecurringDate = &d
		}
		if lastProcessed.Valid {
			p := lastProcessed.Time
			t.LastProcessed = &p
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate templates: %w", err)
	}
	return templates, nil
}

// CreatePendingInstance materializes one PENDING transaction from a due
// template, carrying a back-reference to the template. The template's own
// schedule is not touched here.
func (r *Repository) CreatePendingInstance(ctx context.Context, tpl models.DueTemplate, date time.Time) (string, error) {
	query := `
		INSERT INTO finance.transactions
			(user_id, account_id, type, status, amount, description, category,
			 date, is_recurring, recurring_template_id, created_at, updated_at)
		VALUES ($1, $2, $3, 'PENDING', $4, $5, $6, $7, FALSE, $8,
			CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id`
	var id string
	err := r.db.QueryRowContext(ctx, query, tpl.UserID, tpl.AccountID, tpl.Type,
		tpl.Amount, tpl.Description, tpl.Category, date, tpl.ID).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create pending instance: %w", err)
	}
	return id, nil
}

// SettleRecurring finalizes a pending instance and advances its template's
// schedule in one database transaction. Either both writes land or neither
// does, so a failed settlement is safe to retry as a whole. Re-settling an
// already-completed instance returns ErrAlreadySettled without advancing
// the template a second time.
func (r *Repository) SettleRecurring(ctx context.Context, transactionID, templateID string, now, nextDate time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin settlement: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE finance.transactions
		SET status = 'COMPLETED', date = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'PENDING'`, transactionID, now)
	if err != nil {
		return fmt.Errorf("failed to complete transaction: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		var status string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM finance.transactions WHERE id = $1`, transactionID).Scan(&status)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: %s", ErrTransactionNotFound, transactionID)
		}
		if err != nil {
			return fmt.Errorf("failed to check transaction status: %w", err)
		}
		return fmt.Errorf("%w: %s", ErrAlreadySettled, transactionID)
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE finance.transactions
		SET last_processed = $2, next_recurring_date = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND is_recurring = TRUE`, templateID, now, nextDate)
	if err != nil {
		return fmt.Errorf("failed to advance template: %w", err)
	}
	rows, err = res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, templateID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settlement: %w", err)
	}
	return nil
}

// FindUsers returns every user eligible for a monthly report.
func (r *Repository) FindUsers(ctx context.Context) ([]models.UserRef, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, email FROM finance.users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.UserRef
	for rows.Next() {
		var u models.UserRef
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// FindMonthlyTransactions returns a user's completed transactions with a
// date within [from, to).
func (r *Repository) FindMonthlyTransactions(ctx context.Context, userID string, from, to time.Time) ([]models.Transaction, error) {
	query := `
		SELECT id, type, amount, category, date
		FROM finance.transactions
		WHERE user_id = $1 AND status = 'COMPLETED'
		  AND date >= $2 AND date < $3
		ORDER BY date`
	rows, err := r.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.Type, &t.Amount, &t.Category, &t.Date); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txns, nil
}
