package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SierraSoftworks/automate/pkg/core"
)

// Runner drives one handler against its queue partition.
type Runner[T any] struct {
	queue   core.Queue
	handler Handler[T]
	config  RunnerConfig
	logger  *slog.Logger
}

// NewRunner creates a runner for the given handler.
//
// The reservation window defaults to the handler's Timeout() when it
// implements TimeoutProvider, otherwise to DefaultTimeout. Options are
// applied last and win.
func NewRunner[T any](q core.Queue, handler Handler[T], opts ...RunnerOption) *Runner[T] {
	config := RunnerConfig{
		Timeout:      DefaultTimeout,
		IdleInterval: DefaultIdleInterval,
	}
	if tp, ok := any(handler).(TimeoutProvider); ok {
		config.Timeout = tp.Timeout()
	}

	for _, opt := range opts {
		opt.ApplyRunner(&config)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner[T]{
		queue:   q,
		handler: handler,
		config:  config,
		logger:  logger.With("partition", handler.Partition()),
	}
}

// Run processes messages until ctx is cancelled.
//
// Messages are claimed one at a time, each hidden for the reservation
// window. A message is deleted only after its handler returns nil; on any
// failure it stays queued and is redelivered once the window lapses.
func (r *Runner[T]) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := r.queue.Dequeue(ctx, r.handler.Partition(), r.config.Timeout)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				r.logger.Error("failed to dequeue message", "error", err)
			}
			if !r.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}
		if msg == nil {
			if !r.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}

		r.process(ctx, msg)
	}
}

// process runs the handler for one claimed message and completes the message
// on success.
func (r *Runner[T]) process(ctx context.Context, msg *core.Message) {
	start := time.Now()
	err := r.execute(ctx, msg)
	elapsed := time.Since(start)

	if r.config.Observer != nil {
		r.config.Observer(r.handler.Partition(), err, elapsed)
	}

	if err != nil {
		r.logger.Error("job failed, leaving message for redelivery",
			"key", msg.Key, "elapsed", elapsed, "error", err)
		return
	}

	if err := r.queue.Complete(ctx, r.handler.Partition(), msg); err != nil {
		r.logger.Error("failed to complete message", "key", msg.Key, "error", err)
		return
	}
	r.logger.Debug("job completed", "key", msg.Key, "elapsed", elapsed)
}

// execute decodes and handles one message, converting panics into errors.
// The trace context the message was enqueued under is restored before the
// handler runs. The handler is never cancelled mid-execution: one that
// outruns the reservation window keeps going and risks a concurrent second
// claim instead.
func (r *Runner[T]) execute(ctx context.Context, msg *core.Message) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	var payload T
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}

	ctx = core.WithTraceContext(ctx, core.TraceContext{
		Traceparent: msg.Traceparent,
		Tracestate:  msg.Tracestate,
	})

	return r.handler.Handle(ctx, payload)
}

// sleep waits out the idle interval, returning false when ctx is cancelled.
func (r *Runner[T]) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(r.config.IdleInterval):
		return true
	}
}
