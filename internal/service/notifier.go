package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
)

type EmailService interface {
	SendEmail(to, subject, body string) error
}

// Notifier tells clients about administrator decisions on their requests.
// Delivery failures are logged and never fail the decision itself.
type Notifier struct {
	emailService EmailService
	logger       *slog.Logger
}

func NewNotifier(emailService EmailService, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		emailService: emailService,
		logger:       logger,
	}
}

func (n *Notifier) CardApproved(ctx context.Context, email, name string, limit decimal.Decimal) {
	n.send(email, "Credit card approved",
		fmt.Sprintf("Hello %s, your credit card has been approved with a limit of %s.", name, limit.StringFixed(2)))
}

func (n *Notifier) LimitIncreaseApproved(ctx context.Context, email, name string, limit decimal.Decimal) {
	n.send(email, "Credit limit increased",
		fmt.Sprintf("Hello %s, your credit limit has been raised to %s.", name, limit.StringFixed(2)))
}

func (n *Notifier) AccountClosed(ctx context.Context, email, name string) {
	n.send(email, "Account closed",
		fmt.Sprintf("Hello %s, your account closure request has been processed. Goodbye!", name))
}

func (n *Notifier) send(to, subject, body string) {
	if n == nil || n.emailService == nil {
		return
	}
	if err := n.emailService.SendEmail(to, subject, body); err != nil {
		n.logger.Error("Failed to send notification",
			slog.String("recipient", to),
			slog.String("subject", subject),
			slog.String("error", err.Error()))
		return
	}
	n.logger.Info("Notification sent",
		slog.String("recipient", to),
		slog.String("subject", subject))
}

// MockEmailService records messages instead of delivering them.
type MockEmailService struct {
	SentEmails []struct {
		To      string
		Subject string
		Body    string
	}
}

func (m *MockEmailService) SendEmail(to, subject, body string) error {
	m.SentEmails = append(m.SentEmails, struct {
		To      string
		Subject string
		Body    string
	}{to, subject, body})
	return nil
}
