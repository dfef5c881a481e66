package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/gymsuite/jobs"
)

// JobsAPI is the subset of JobsCLI the command dispatcher needs.
type JobsAPI interface {
	Trigger(ctx context.Context, name, date string) (*asynq.TaskInfo, error)
	InspectQueue(ctx context.Context, queue string) (QueueStats, error)
	ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error)
}

// ErrUsage is returned for unknown or malformed subcommands.
var ErrUsage = errors.New("usage: jobs trigger <task> [-date YYYY-MM-DD] | jobs stats [-queue name] | jobs scheduled [-n size]")

// RunJobs executes a `jobs` subcommand and prints its outcome to out.
func RunJobs(ctx context.Context, api JobsAPI, args []string, out io.Writer) error {
	if len(args) == 0 {
		return ErrUsage
	}
	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return fmt.Errorf("%w; tasks: %s", ErrUsage, strings.Join(SweepTasks, ", "))
		}
		fs := flag.NewFlagSet("trigger", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		date := fs.String("date", "", "business date")
		if err := fs.Parse(args[2:]); err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		info, err := api.Trigger(ctx, args[1], *date)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return nil
	case "stats":
		fs := flag.NewFlagSet("stats", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		queue := fs.String("queue", jobs.QueueDefault, "queue name")
		if err := fs.Parse(args[1:]); err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		stats, err := api.InspectQueue(ctx, *queue)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return nil
	case "scheduled":
		fs := flag.NewFlagSet("scheduled", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		size := fs.Int("n", 10, "page size")
		if err := fs.Parse(args[1:]); err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		tasks, err := api.ListScheduled(ctx, *size)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			fmt.Fprintf(out, "%s\t%s\t%s\n", t.ID, t.Type, t.NextProcessAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	}
	return ErrUsage
}
