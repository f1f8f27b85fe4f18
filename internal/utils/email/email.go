package email

import (
	"fmt"
	"net/smtp"
	"sort"

	"github.com/chingu-finance/scheduler/internal/config"
	"github.com/chingu-finance/scheduler/internal/models"
	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendBudgetAlert sends a budget threshold warning email
func (s *Sender) SendBudgetAlert(to, userName, accountName string, spent, limit decimal.Decimal, percentUsed float64) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = fmt.Sprintf("Budget Alert for %s", accountName)

	body := fmt.Sprintf(
		"Dear %s,\n\n", userName,
	)
	body += fmt.Sprintf(
		"You have used %.1f%% of your monthly budget for account %s.\n"+
			"Spent so far: %s\n"+
			"Monthly limit: %s\n"+
			"Consider reviewing your upcoming expenses for the rest of the month.\n",
		percentUsed, accountName, spent.StringFixed(2), limit.StringFixed(2),
	)
	body += "\nBest regards,\nChingu Finance"
	e.Text = []byte(body)

	if err := s.send(e); err != nil {
		s.logger.Errorf("Failed to send budget alert to %s: %v", to, err)
		return fmt.Errorf("failed to send budget alert: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

// SendMonthlyReport sends the previous month's financial report
func (s *Sender) SendMonthlyReport(to, userName, monthName string, stats models.MonthlyStats, insights models.Insights) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = fmt.Sprintf("Your %s Financial Report", monthName)

	net := stats.TotalIncome.Sub(stats.TotalExpenses)
	body := fmt.Sprintf(
		"Dear %s,\n\n", userName,
	)
	body += fmt.Sprintf(
		"Here is your financial summary for %s:\n"+
			"Total income: %s\n"+
			"Total expenses: %s\n"+
			"Net: %s\n"+
			"Transactions: %d\n",
		monthName, stats.TotalIncome.StringFixed(2), stats.TotalExpenses.StringFixed(2),
		net.StringFixed(2), stats.TransactionCount,
	)

	if len(stats.ByCategory) > 0 {
		body += "\nSpending by category:\n"
		categories := make([]string, 0, len(stats.ByCategory))
		for name := range stats.ByCategory {
			categories = append(categories, name)
		}
		sort.Strings(categories)
		for _, name := range categories {
			body += fmt.Sprintf("  %s: %s\n", name, stats.ByCategory[name].StringFixed(2))
		}
	}

	body += fmt.Sprintf("\n%s\n%s\n%s\n",
		insights.Summary, insights.TopCategoryInsight, insights.SavingsInsight)
	body += "\nBest regards,\nChingu Finance"
	e.Text = []byte(body)

	if err := s.send(e); err != nil {
		s.logger.Errorf("Failed to send monthly report to %s: %v", to, err)
		return fmt.Errorf("failed to send monthly report: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

func (s *Sender) send(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	return e.Send(addr, auth)
}
