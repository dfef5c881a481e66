package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/gymsuite/internal/jobs"
	"github.com/odyssey-erp/gymsuite/internal/membership"
)

// MembershipSweeper runs the scheduled membership sweeps.
type MembershipSweeper interface {
	RunRecurringInvoiceSweep(ctx context.Context, today time.Time) (membership.SweepResult, error)
	RunExpirationSweep(ctx context.Context, today time.Time) (membership.SweepResult, error)
	RunUpcomingExpirationReminderSweep(ctx context.Context, today time.Time) (membership.SweepResult, error)
}

// MembershipSweepJob dispatches sweep tasks to the membership service.
type MembershipSweepJob struct {
	Service  MembershipSweeper
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Location *time.Location
	clock    func() time.Time
}

// NewMembershipSweepJob constructs the job handler. Dates are resolved in loc.
func NewMembershipSweepJob(service MembershipSweeper, logger *slog.Logger, metrics *jobmetrics.Metrics, loc *time.Location) *MembershipSweepJob {
	if loc == nil {
		loc = time.UTC
	}
	return &MembershipSweepJob{
		Service:  service,
		Logger:   logger,
		Metrics:  metrics,
		Location: loc,
		clock:    time.Now,
	}
}

// Handlers lists the task registrations served by this job.
func (j *MembershipSweepJob) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskRecurringInvoice, Handler: j.Handle},
		{Type: TaskExpiration, Handler: j.Handle},
		{Type: TaskReminder, Handler: j.Handle},
	}
}

// Handle executes the sweep named by the task type.
func (j *MembershipSweepJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("membership sweep: dependencies not configured")
	}
	var payload SweepPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("membership sweep: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	today, err := j.resolveDate(payload.Date)
	if err != nil {
		return fmt.Errorf("membership sweep: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(task.Type())
	var result membership.SweepResult
	switch task.Type() {
	case TaskRecurringInvoice:
		result, err = j.Service.RunRecurringInvoiceSweep(ctx, today)
	case TaskExpiration:
		result, err = j.Service.RunExpirationSweep(ctx, today)
	case TaskReminder:
		result, err = j.Service.RunUpcomingExpirationReminderSweep(ctx, today)
	default:
		return fmt.Errorf("membership sweep: unknown task %q: %w", task.Type(), asynq.SkipRetry)
	}
	j.Metrics.AddRecords(task.Type(), result.Succeeded, result.Failed, result.Skipped)
	if err = tracker.End(err); err != nil {
		j.log().Error("membership sweep failed", slog.String("job", task.Type()), slog.Any("error", err))
		return err
	}
	return nil
}

func (j *MembershipSweepJob) resolveDate(raw string) (time.Time, error) {
	if raw != "" {
		t, err := time.ParseInLocation("2006-01-02", raw, j.Location)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q", raw)
		}
		return t, nil
	}
	return j.clock().In(j.Location), nil
}

func (j *MembershipSweepJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
