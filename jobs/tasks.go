package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/gymsuite/internal/mail"
	"github.com/odyssey-erp/gymsuite/internal/sms"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueNotifications carries outbound SMS and email.
	QueueNotifications = "notifications"

	// TaskRecurringInvoice posts the invoices that fell due.
	TaskRecurringInvoice = "membership:recurring_invoice"
	// TaskExpiration expires memberships without auto invoicing.
	TaskExpiration = "membership:expiration"
	// TaskReminder schedules upcoming expiration reminders.
	TaskReminder = "membership:reminder"
	// TaskSendSMS delivers one queued SMS.
	TaskSendSMS = "sms:send"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
)

// sweepUniqueTTL bounds how long a sweep task blocks a duplicate enqueue.
const sweepUniqueTTL = 6 * time.Hour

// SweepPayload optionally pins the business date of a sweep run.
type SweepPayload struct {
	Date string `json:"date,omitempty"`
}

// SweepOptions are applied to every sweep enqueue. Sweeps are never retried by
// the queue; failed records are picked up again on the next run.
func SweepOptions() []asynq.Option {
	return []asynq.Option{
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(0),
		asynq.Unique(sweepUniqueTTL),
	}
}

// NewSweepTask builds a sweep task of the given type. An empty date means the
// worker's current day.
func NewSweepTask(taskType, date string) (*asynq.Task, error) {
	body, err := json.Marshal(SweepPayload{Date: date})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body, SweepOptions()...), nil
}

// NewSendSMSTask wraps an outbox message. The message uuid doubles as task id
// so a message is queued at most once.
func NewSendSMSTask(msg sms.Message) (*asynq.Task, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSendSMS, body, asynq.Queue(QueueNotifications), asynq.TaskID(msg.UUID), asynq.MaxRetry(3)), nil
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(msg mail.Message) (*asynq.Task, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.Queue(QueueNotifications), asynq.MaxRetry(5)), nil
}
