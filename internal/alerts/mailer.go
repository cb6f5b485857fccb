package alerts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Message is one outbound email
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers email
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ResendMailer sends email through the Resend API
type ResendMailer struct {
	client *resend.Client
	from   string
}

// NewResendMailer creates a mailer sending from the given address
func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{client: resend.NewClient(apiKey), from: from}
}

// Send implements Mailer
func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := m.client.Emails.Send(&resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

// LogMailer only logs messages; used when no email provider is configured
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger.With("component", "mailer")}
}

// Send implements Mailer
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("email not sent, no provider configured", "to", msg.To, "subject", msg.Subject)
	return nil
}
