package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/SierraSoftworks/automate/pkg/core"
	"github.com/SierraSoftworks/automate/pkg/job"
)

// CronPartition is the queue partition consumed by the cron scheduler.
const CronPartition = "cron"

// cronParser accepts standard 5-field expressions plus @descriptors.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseCron validates a cron expression against the scheduler's parser.
func ParseCron(expr string) (cron.Schedule, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule, nil
}

// Task is the payload of one scheduled timer: the schedule to re-arm, the
// partition to feed and the payload to drop there.
type Task struct {
	Cron           string          `json:"cron"`
	Kind           string          `json:"kind"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Task           json.RawMessage `json:"task"`
}

func (t Task) String() string {
	return t.Kind
}

// Schedule pairs a cron expression with the job payload it dispatches. In
// configuration files the payload's fields sit inline beside cron.
type Schedule[T any] struct {
	Cron string `yaml:"cron"`
	Job  T      `yaml:",inline"`
}

// SetupCronJobs registers one self-rescheduling timer per schedule, each
// dispatching its payload into the kind partition when it fires.
//
// Timers live in the "cron" partition under the payload's own idempotency
// key, so re-running setup after a restart or a config reload collapses
// onto the pending timer instead of stacking duplicates. An invalid cron
// expression fails the whole setup.
func SetupCronJobs[T fmt.Stringer](ctx context.Context, q core.Queue, kind string, schedules []Schedule[T]) error {
	now := time.Now()
	for _, s := range schedules {
		schedule, err := ParseCron(s.Cron)
		if err != nil {
			return err
		}

		payload, err := json.Marshal(s.Job)
		if err != nil {
			return fmt.Errorf("failed to encode cron job %q: %w", s.Job.String(), err)
		}

		task := Task{
			Cron:           s.Cron,
			Kind:           kind,
			IdempotencyKey: s.Job.String(),
			Task:           payload,
		}

		next := schedule.Next(now)
		slog.Info("scheduling cron job",
			"kind", kind, "key", task.IdempotencyKey, "next_run", next)

		err = job.Dispatch(ctx, q, CronPartition, task,
			job.WithKey(task.IdempotencyKey),
			job.Delay(next.Sub(now)),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// CronJob re-arms scheduled timers and fans their payloads out to the
// partitions that do the work.
type CronJob struct {
	queue core.Queue
}

// NewCronJob creates the scheduler handler over q.
func NewCronJob(q core.Queue) *CronJob {
	return &CronJob{queue: q}
}

// Partition implements job.Handler.
func (c *CronJob) Partition() string {
	return CronPartition
}

// Handle re-enqueues the timer for its next occurrence, then dispatches the
// carried payload immediately.
//
// The next occurrence is always computed from the current time, so
// occurrences missed while the process was down are skipped rather than
// backfilled.
func (c *CronJob) Handle(ctx context.Context, task Task) error {
	schedule, err := ParseCron(task.Cron)
	if err != nil {
		return err
	}

	now := time.Now()
	next := schedule.Next(now)
	err = job.Dispatch(ctx, c.queue, CronPartition, task,
		job.WithKey(task.IdempotencyKey),
		job.Delay(next.Sub(now)),
	)
	if err != nil {
		return fmt.Errorf("failed to reschedule %q: %w", task.Kind, err)
	}

	return c.queue.Enqueue(ctx, task.Kind, task.Task, core.EnqueueOptions{})
}
