package sms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/odyssey-erp/gymsuite/internal/shared"
)

// Message is one queued SMS.
type Message struct {
	UUID     string `json:"uuid"`
	MemberID int64  `json:"member_id"`
	Phone    string `json:"phone"`
	Body     string `json:"body"`
}

// Recipient identifies who receives a notification.
type Recipient struct {
	MemberID int64
	Phone    string
}

// TemplateStore resolves the template for a usage.
type TemplateStore interface {
	TemplateByUsage(ctx context.Context, usage Usage) (*Template, error)
}

// Enqueuer puts messages on the background queue.
type Enqueuer interface {
	EnqueueSMS(ctx context.Context, msg Message) error
}

// Outbox renders notifications and hands them to the queue.
type Outbox struct {
	templates TemplateStore
	queue     Enqueuer
	logger    *slog.Logger
}

// NewOutbox builds an Outbox.
func NewOutbox(templates TemplateStore, queue Enqueuer, logger *slog.Logger) *Outbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Outbox{templates: templates, queue: queue, logger: logger}
}

// Notify renders the template for usage and queues it. A member without a phone
// or a usage without a template is skipped silently.
func (o *Outbox) Notify(ctx context.Context, usage Usage, to Recipient, data any) error {
	if to.Phone == "" {
		o.logger.Debug("sms skipped, member has no phone", slog.Int64("member_id", to.MemberID))
		return nil
	}
	tmpl, err := o.templates.TemplateByUsage(ctx, usage)
	if errors.Is(err, shared.ErrNotFound) {
		o.logger.Debug("sms skipped, no template", slog.String("usage", string(usage)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("sms: load template: %w", err)
	}
	body, err := tmpl.Render(data)
	if err != nil {
		return err
	}
	msg := Message{UUID: uuid.NewString(), MemberID: to.MemberID, Phone: to.Phone, Body: body}
	if err := o.queue.EnqueueSMS(ctx, msg); err != nil {
		return fmt.Errorf("sms: enqueue: %w", err)
	}
	return nil
}

// Sender sends one message.
type Sender interface {
	Send(ctx context.Context, phone, message string) Result
}

// WarningRecorder annotates members whose last SMS failed.
type WarningRecorder interface {
	SetSMSWarning(ctx context.Context, memberID int64, warning string) error
}

// Deliverer is the worker side of the outbox.
type Deliverer struct {
	sender   Sender
	warnings WarningRecorder
	logger   *slog.Logger
}

// NewDeliverer builds a Deliverer.
func NewDeliverer(sender Sender, warnings WarningRecorder, logger *slog.Logger) *Deliverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deliverer{sender: sender, warnings: warnings, logger: logger}
}

// Deliver sends msg. A gateway failure is written to the member's warning and
// is not returned; only a failed warning update is.
func (d *Deliverer) Deliver(ctx context.Context, msg Message) (Result, error) {
	res := d.sender.Send(ctx, msg.Phone, msg.Body)
	if msg.MemberID == 0 || d.warnings == nil {
		return res, nil
	}
	warning := ""
	if !res.OK {
		warning = res.Response
		d.logger.Warn("sms delivery failed", slog.String("uuid", msg.UUID), slog.Int64("member_id", msg.MemberID))
	}
	if err := d.warnings.SetSMSWarning(ctx, msg.MemberID, warning); err != nil {
		return res, fmt.Errorf("sms: record warning: %w", err)
	}
	return res, nil
}
