package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/gymsuite/internal/jobs"
	"github.com/odyssey-erp/gymsuite/internal/mail"
	"github.com/odyssey-erp/gymsuite/internal/membership"
	"github.com/odyssey-erp/gymsuite/internal/sms"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSweeper struct {
	calls []string
	dates []time.Time
	err   error
}

func (f *fakeSweeper) run(job string, today time.Time) (membership.SweepResult, error) {
	f.calls = append(f.calls, job)
	f.dates = append(f.dates, today)
	return membership.SweepResult{Job: job, Processed: 3, Succeeded: 2, Failed: 1}, f.err
}

func (f *fakeSweeper) RunRecurringInvoiceSweep(_ context.Context, today time.Time) (membership.SweepResult, error) {
	return f.run(membership.SweepRecurringInvoice, today)
}

func (f *fakeSweeper) RunExpirationSweep(_ context.Context, today time.Time) (membership.SweepResult, error) {
	return f.run(membership.SweepExpiration, today)
}

func (f *fakeSweeper) RunUpcomingExpirationReminderSweep(_ context.Context, today time.Time) (membership.SweepResult, error) {
	return f.run(membership.SweepReminder, today)
}

func TestMembershipSweepJobDispatchesByType(t *testing.T) {
	sweeper := &fakeSweeper{}
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	job := NewMembershipSweepJob(sweeper, discard, metrics, time.UTC)
	job.clock = func() time.Time { return time.Date(2025, 3, 4, 23, 0, 0, 0, time.UTC) }

	for _, taskType := range []string{TaskRecurringInvoice, TaskExpiration, TaskReminder} {
		task, err := NewSweepTask(taskType, "")
		require.NoError(t, err)
		require.NoError(t, job.Handle(context.Background(), task))
	}
	assert.Equal(t, []string{membership.SweepRecurringInvoice, membership.SweepExpiration, membership.SweepReminder}, sweeper.calls)
	assert.Equal(t, 4, sweeper.dates[0].Day())

	count, err := testutil.GatherAndCount(registry, "gymsuite_sweep_records_total")
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestMembershipSweepJobPinnedDateAndErrors(t *testing.T) {
	sweeper := &fakeSweeper{}
	job := NewMembershipSweepJob(sweeper, discard, nil, nil)

	task, err := NewSweepTask(TaskExpiration, "2025-01-31")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), sweeper.dates[0])

	bad, err := NewSweepTask(TaskExpiration, "31/01/2025")
	require.NoError(t, err)
	err = job.Handle(context.Background(), bad)
	require.ErrorIs(t, err, asynq.SkipRetry)

	sweeper.err = errors.New("db down")
	err = job.Handle(context.Background(), task)
	require.EqualError(t, err, "db down")

	err = job.Handle(context.Background(), asynq.NewTask("membership:unknown", nil))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSweepSchedule(t *testing.T) {
	entries, err := SweepSchedule("0 1 * * *", "", "0 8 * * *")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, TaskRecurringInvoice, entries[0].Task.Type())
	assert.Equal(t, TaskReminder, entries[1].Task.Type())

	var payload SweepPayload
	require.NoError(t, json.Unmarshal(entries[0].Task.Payload(), &payload))
	assert.Empty(t, payload.Date)
}

type fakeDeliverer struct {
	got []sms.Message
	res sms.Result
	err error
}

func (f *fakeDeliverer) Deliver(_ context.Context, msg sms.Message) (sms.Result, error) {
	f.got = append(f.got, msg)
	return f.res, f.err
}

type fakeMailSender struct {
	got []mail.Message
}

func (f *fakeMailSender) Send(_ context.Context, msg mail.Message) error {
	f.got = append(f.got, msg)
	return nil
}

func TestNotificationJob(t *testing.T) {
	deliverer := &fakeDeliverer{res: sms.Result{OK: false, Response: "rejected"}}
	sender := &fakeMailSender{}
	job := NewNotificationJob(deliverer, sender, discard, nil)

	task, err := NewSendSMSTask(sms.Message{UUID: "u-1", MemberID: 7, Phone: "252634000000", Body: "hi"})
	require.NoError(t, err)
	require.NoError(t, job.HandleSMS(context.Background(), task), "gateway rejection must not fail the task")
	require.Len(t, deliverer.got, 1)
	assert.Equal(t, int64(7), deliverer.got[0].MemberID)

	deliverer.err = errors.New("update warning")
	require.Error(t, job.HandleSMS(context.Background(), task))

	emailTask, err := NewSendEmailTask(mail.Message{To: "a@example.com", Subject: "s", Body: "b"})
	require.NoError(t, err)
	require.NoError(t, job.HandleEmail(context.Background(), emailTask))
	require.Len(t, sender.got, 1)

	noRecipient, err := NewSendEmailTask(mail.Message{Subject: "s"})
	require.NoError(t, err)
	require.ErrorIs(t, job.HandleEmail(context.Background(), noRecipient), asynq.SkipRetry)
}

type fakeInspector map[string]*asynq.QueueInfo

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	info, ok := f[queue]
	if !ok {
		return nil, asynq.ErrQueueNotFound
	}
	return info, nil
}

func TestHealthHandler(t *testing.T) {
	h := NewHandler(fakeInspector{QueueDefault: {Queue: QueueDefault, Pending: 2, Retry: 1}}, discard)
	r := chi.NewRouter()
	h.MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body []queueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, queueHealth{Queue: QueueDefault, Pending: 2, Retry: 1}, body[0])
	assert.Equal(t, queueHealth{Queue: QueueNotifications}, body[1])
}
