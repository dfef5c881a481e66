package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/gymsuite/jobs"
)

type stubJobs struct {
	name, date string
	queue      string
}

func (s *stubJobs) Trigger(_ context.Context, name, date string) (*asynq.TaskInfo, error) {
	s.name, s.date = name, date
	return &asynq.TaskInfo{ID: "t1", Type: name, Queue: jobs.QueueDefault}, nil
}

func (s *stubJobs) InspectQueue(_ context.Context, queue string) (QueueStats, error) {
	s.queue = queue
	return QueueStats{Queue: queue, Pending: 4, Retry: 1}, nil
}

func (s *stubJobs) ListScheduled(context.Context, int) ([]*asynq.TaskInfo, error) {
	return []*asynq.TaskInfo{{ID: "t2", Type: jobs.TaskReminder, NextProcessAt: time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC)}}, nil
}

func TestRunJobsTrigger(t *testing.T) {
	api := &stubJobs{}
	var out bytes.Buffer
	require.NoError(t, RunJobs(context.Background(), api, []string{"trigger", jobs.TaskExpiration, "-date", "2025-01-31"}, &out))
	assert.Equal(t, jobs.TaskExpiration, api.name)
	assert.Equal(t, "2025-01-31", api.date)
	assert.Equal(t, "enqueued membership:expiration id=t1 queue=default\n", out.String())
}

func TestRunJobsStatsAndScheduled(t *testing.T) {
	api := &stubJobs{}
	var out bytes.Buffer
	require.NoError(t, RunJobs(context.Background(), api, []string{"stats", "-queue", jobs.QueueNotifications}, &out))
	assert.Equal(t, jobs.QueueNotifications, api.queue)
	assert.Contains(t, out.String(), "pending=4")

	out.Reset()
	require.NoError(t, RunJobs(context.Background(), api, []string{"scheduled"}, &out))
	assert.Equal(t, "t2\tmembership:reminder\t2025-01-02 08:00:00\n", out.String())
}

func TestRunJobsUsage(t *testing.T) {
	api := &stubJobs{}
	require.ErrorIs(t, RunJobs(context.Background(), api, nil, &bytes.Buffer{}), ErrUsage)
	require.ErrorIs(t, RunJobs(context.Background(), api, []string{"trigger"}, &bytes.Buffer{}), ErrUsage)
	require.ErrorIs(t, RunJobs(context.Background(), api, []string{"purge"}, &bytes.Buffer{}), ErrUsage)
}

func TestTriggerRejectsUnknownTask(t *testing.T) {
	c := &JobsCLI{client: &asynq.Client{}}
	_, err := c.Trigger(context.Background(), "consol:refresh", "")
	require.Error(t, err)
}
