// Package automate is a self-hosted automation platform: cron-scheduled
// workflows collect changes from external sources and publish them as tasks,
// coordinated through a durable queue in a single embedded SQLite database.
//
// This package re-exports the public surface of the pkg/ packages for a
// clean import path.
//
// Basic usage:
//
//	// Open the store and run the schema migration.
//	store, _ := automate.Open("automate.db")
//	store.Migrate(context.Background())
//
//	// Enqueue work and run a handler loop against its partition.
//	automate.Dispatch(ctx, store, "jobs::demo", payload)
//	runner := automate.NewRunner(store, handler)
//	runner.Run(ctx)
package automate

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SierraSoftworks/automate/pkg/collector"
	"github.com/SierraSoftworks/automate/pkg/core"
	"github.com/SierraSoftworks/automate/pkg/job"
	"github.com/SierraSoftworks/automate/pkg/storage"
	"github.com/SierraSoftworks/automate/pkg/workflow"
)

// Store types

type (
	// Store combines the key/value and queue contracts of a backend.
	Store = core.Store

	// KeyValueStore is the partitioned key/value contract.
	KeyValueStore = core.KeyValueStore

	// Queue is the durable message queue contract.
	Queue = core.Queue

	// Message is one durable queue row.
	Message = core.Message

	// Entry is one key/value row.
	Entry = core.Entry

	// EnqueueOptions control message placement on the queue.
	EnqueueOptions = core.EnqueueOptions

	// TraceContext carries W3C trace-context values across the queue.
	TraceContext = core.TraceContext

	// GormStore is the GORM/SQLite-backed Store implementation.
	GormStore = storage.GormStore

	// PartitionStats summarises the messages of one queue partition.
	PartitionStats = storage.PartitionStats

	// CronTask is the payload of one self-rescheduling cron timer.
	CronTask = workflow.Task
)

// Open opens (creating if necessary) the SQLite database at path and returns
// a store backed by it.
func Open(path string, opts ...storage.PoolOption) (*storage.GormStore, error) {
	return storage.Open(path, opts...)
}

// NewGormStore wraps an existing GORM connection in a store.
func NewGormStore(db *gorm.DB) *storage.GormStore {
	return storage.NewGormStore(db)
}

// NewPartition binds a store and partition name to a value type.
func NewPartition[T any](store core.KeyValueStore, name string) *core.Partition[T] {
	return core.NewPartition[T](store, name)
}

// Cached returns the value stored under (partition, key) if it has not yet
// expired, invoking build and persisting the result otherwise.
func Cached[T any](ctx context.Context, store core.KeyValueStore, partition, key string, ttl time.Duration, build core.BuildFunc[T]) (T, error) {
	return core.Cached(ctx, store, partition, key, ttl, build)
}

// Jobs

// Dispatch encodes payload as JSON and enqueues it onto partition.
// Use job.WithKey for idempotent dispatch and job.Delay for scheduling.
func Dispatch[T any](ctx context.Context, q core.Queue, partition string, payload T, opts ...job.Option) error {
	return job.Dispatch(ctx, q, partition, payload, opts...)
}

// NewRunner creates a runner driving handler against its queue partition.
func NewRunner[T any](q core.Queue, handler job.Handler[T], opts ...job.RunnerOption) *job.Runner[T] {
	return job.NewRunner(q, handler, opts...)
}

// Cron scheduling

// NewCronJob creates the scheduler handler over q. Run it with NewRunner to
// drive every configured schedule.
func NewCronJob(q core.Queue) *workflow.CronJob {
	return workflow.NewCronJob(q)
}

// SetupCronJobs registers one self-rescheduling timer per schedule, each
// dispatching its payload into the kind partition when it fires.
func SetupCronJobs[T fmt.Stringer](ctx context.Context, q core.Queue, kind string, schedules []workflow.Schedule[T]) error {
	return workflow.SetupCronJobs(ctx, q, kind, schedules)
}

// Collectors

// NewDifferential creates a differential collector over source, persisting
// its seen-ID set in store.
func NewDifferential[T any, ID comparable](store core.KeyValueStore, source collector.DifferentialSource[T, ID]) *collector.Differential[T, ID] {
	return collector.NewDifferential(store, source)
}

// NewIncremental creates an incremental collector over source, persisting
// its watermark in store.
func NewIncremental[T any, W any](store core.KeyValueStore, source collector.IncrementalSource[T, W]) *collector.Incremental[T, W] {
	return collector.NewIncremental(store, source)
}
