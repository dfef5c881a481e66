// Package mail sends membership emails over SMTP.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/jordan-wright/email"
)

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Message is a plain-text email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ExpirationReminder is rendered into the reminder email.
type ExpirationReminder struct {
	To     string
	Name   string
	Code   string
	Expiry time.Time
	Amount string
	Branch string
}

// Compose renders the reminder.
func (r ExpirationReminder) Compose() Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", r.Name)
	fmt.Fprintf(&b, "Your membership %s expires on %s.\n", r.Code, r.Expiry.Format("2006-01-02"))
	if r.Amount != "" {
		fmt.Fprintf(&b, "Renewal amount: %s.\n", r.Amount)
	}
	if r.Branch != "" {
		fmt.Fprintf(&b, "Visit the %s front desk to renew before that date.\n", r.Branch)
	}
	b.WriteString("\nBest regards,\nGym Management")
	return Message{
		To:      r.To,
		Subject: fmt.Sprintf("Membership %s expires soon", r.Code),
		Body:    b.String(),
	}
}

// Sender delivers messages through SMTP.
type Sender struct {
	cfg    Config
	logger *slog.Logger
	send   func(e *email.Email) error
}

// NewSender creates a new email sender.
func NewSender(cfg Config, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sender{cfg: cfg, logger: logger}
	s.send = s.smtpSend
	return s
}

func (s *Sender) smtpSend(e *email.Email) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	return e.Send(addr, auth)
}

// Send delivers msg.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("mail: recipient required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.Text = []byte(msg.Body)
	if err := s.send(e); err != nil {
		s.logger.Error("failed to send email", slog.String("to", msg.To), slog.Any("error", err))
		return fmt.Errorf("mail: send: %w", err)
	}
	s.logger.Info("email sent", slog.String("to", msg.To), slog.String("subject", msg.Subject))
	return nil
}

// SendExpirationReminder composes and sends the reminder immediately.
func (s *Sender) SendExpirationReminder(ctx context.Context, r ExpirationReminder) error {
	return s.Send(ctx, r.Compose())
}

// Enqueuer hands messages to the background queue.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, msg Message) error
}

// Queue composes reminders and defers delivery to the worker.
type Queue struct {
	queue Enqueuer
}

// NewQueue builds a Queue.
func NewQueue(queue Enqueuer) *Queue {
	return &Queue{queue: queue}
}

// SendExpirationReminder enqueues the reminder.
func (q *Queue) SendExpirationReminder(ctx context.Context, r ExpirationReminder) error {
	if r.To == "" {
		return nil
	}
	return q.queue.EnqueueEmail(ctx, r.Compose())
}
