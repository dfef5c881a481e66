package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/gymsuite/internal/jobs"
	"github.com/odyssey-erp/gymsuite/internal/mail"
	"github.com/odyssey-erp/gymsuite/internal/sms"
)

// SMSDeliverer sends one outbox message.
type SMSDeliverer interface {
	Deliver(ctx context.Context, msg sms.Message) (sms.Result, error)
}

// MailSender sends one email.
type MailSender interface {
	Send(ctx context.Context, msg mail.Message) error
}

// NotificationJob drains the SMS and email queues.
type NotificationJob struct {
	SMS     SMSDeliverer
	Mail    MailSender
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewNotificationJob constructs the notification handlers.
func NewNotificationJob(deliverer SMSDeliverer, sender MailSender, logger *slog.Logger, metrics *jobmetrics.Metrics) *NotificationJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationJob{SMS: deliverer, Mail: sender, Logger: logger, Metrics: metrics}
}

// Handlers lists the task registrations served by this job.
func (j *NotificationJob) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskSendSMS, Handler: j.HandleSMS},
		{Type: TaskTypeSendEmail, Handler: j.HandleEmail},
	}
}

// HandleSMS sends a queued SMS. A gateway rejection is recorded on the member
// by the deliverer and does not fail the task.
func (j *NotificationJob) HandleSMS(ctx context.Context, task *asynq.Task) error {
	if j.SMS == nil {
		return errors.New("sms: deliverer not configured")
	}
	var msg sms.Message
	if err := json.Unmarshal(task.Payload(), &msg); err != nil {
		return fmt.Errorf("sms: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskSendSMS)
	res, err := j.SMS.Deliver(ctx, msg)
	if err = tracker.End(err); err != nil {
		return err
	}
	j.Logger.Info("sms processed", slog.String("uuid", msg.UUID), slog.Bool("ok", res.OK))
	return nil
}

// HandleEmail processes TaskTypeSendEmail tasks.
func (j *NotificationJob) HandleEmail(ctx context.Context, task *asynq.Task) error {
	if j.Mail == nil {
		return errors.New("mail: sender not configured")
	}
	var msg mail.Message
	if err := json.Unmarshal(task.Payload(), &msg); err != nil {
		return fmt.Errorf("mail: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if msg.To == "" {
		return fmt.Errorf("mail: recipient required: %w", asynq.SkipRetry)
	}
	return j.Metrics.Track(TaskTypeSendEmail).End(j.Mail.Send(ctx, msg))
}
