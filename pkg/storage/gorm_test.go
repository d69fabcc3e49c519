package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SierraSoftworks/automate/pkg/core"
)

// newTestStore creates a fresh in-memory SQLite store for each test.
// The database is fully migrated and ready for use.
func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open in-memory sqlite")
	require.NoError(t, ConfigurePool(db), "cap pool for in-memory sqlite")

	s := NewGormStore(db)
	require.NoError(t, s.Migrate(context.Background()), "migrate schema")
	return s
}

// ---------------------------------------------------------------------------
// Constructor / detection
// ---------------------------------------------------------------------------

func TestNewGormStore_IsSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	s := NewGormStore(db)
	assert.True(t, s.IsSQLite(), "should detect SQLite dialect")
}

func TestNewGormStore_DB(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	s := NewGormStore(db)
	assert.Same(t, db, s.DB(), "DB() should return the same *gorm.DB passed in")
}

func TestNewGormStore_NilDB(t *testing.T) {
	s := NewGormStore(nil)
	assert.False(t, s.IsSQLite(), "nil db should not claim SQLite")
}

// ---------------------------------------------------------------------------
// Key-value store
// ---------------------------------------------------------------------------

func TestSet_And_Get_RoundTripsValue(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Set(ctx, "todoist::task", "abc", []byte(`{"id":"1"}`)))

	value, err := s.Get(ctx, "todoist::task", "abc")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":"1"}`), value)
}

func TestGet_ReturnsNilForMissingKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	value, err := s.Get(ctx, "todoist::task", "missing")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestSet_OverwritesExistingValue(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Set(ctx, "state", "key", []byte(`"old"`)))
	require.NoError(t, s.Set(ctx, "state", "key", []byte(`"new"`)))

	value, err := s.Get(ctx, "state", "key")
	require.NoError(t, err)
	assert.Equal(t, []byte(`"new"`), value)

	entries, err := s.List(ctx, "state")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "overwrite should not create a second row")
}

func TestRemove_DeletesKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Set(ctx, "state", "key", []byte(`1`)))
	require.NoError(t, s.Remove(ctx, "state", "key"))

	value, err := s.Get(ctx, "state", "key")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestRemove_AbsentKeyIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	assert.NoError(t, s.Remove(ctx, "state", "never-stored"))
}

func TestList_ReturnsEntriesInKeyOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Set(ctx, "state", "b", []byte(`2`)))
	require.NoError(t, s.Set(ctx, "state", "a", []byte(`1`)))
	require.NoError(t, s.Set(ctx, "other", "c", []byte(`3`)))

	entries, err := s.List(ctx, "state")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Key)
	assert.Equal(t, "b", entries[1].Key)
}

func TestSet_RejectsInvalidPartition(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.Set(ctx, "bad partition", "key", []byte(`1`))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidPartition)
}

func TestGet_RejectsEmptyKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Get(ctx, "state", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrKeyEmpty)
}

// ---------------------------------------------------------------------------
// Enqueue
// ---------------------------------------------------------------------------

func TestEnqueue_GeneratesRandomKeys(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Enqueue(ctx, "work", []byte(`1`), core.EnqueueOptions{}))
	require.NoError(t, s.Enqueue(ctx, "work", []byte(`2`), core.EnqueueOptions{}))

	msgs, err := s.Messages(ctx, "work")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.NotEmpty(t, msgs[0].Key)
	assert.NotEmpty(t, msgs[1].Key)
	assert.NotEqual(t, msgs[0].Key, msgs[1].Key)
}

func TestEnqueue_WithDelayHidesMessage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Enqueue(ctx, "work", []byte(`1`), core.EnqueueOptions{Delay: time.Hour}))

	got, err := s.Dequeue(ctx, "work", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, got, "delayed message should not be claimable yet")
}

func TestEnqueue_SameKeyReplacesScheduledMessage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Enqueue(ctx, "work", []byte(`"old"`), core.EnqueueOptions{Key: "job", Delay: time.Hour}))
	require.NoError(t, s.Enqueue(ctx, "work", []byte(`"new"`), core.EnqueueOptions{Key: "job"}))

	msgs, err := s.Messages(ctx, "work")
	require.NoError(t, err)
	assert.Len(t, msgs, 1, "keyed enqueue should replace, not duplicate")

	got, err := s.Dequeue(ctx, "work", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []byte(`"new"`), got.Payload)
}

func TestEnqueue_SameKeyInvalidatesReservation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Enqueue(ctx, "work", []byte(`"old"`), core.EnqueueOptions{Key: "job"}))

	first, err := s.Dequeue(ctx, "work", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Re-arming the key clears the reservation and makes the message
	// claimable again with the fresh payload.
	require.NoError(t, s.Enqueue(ctx, "work", []byte(`"new"`), core.EnqueueOptions{Key: "job"}))

	second, err := s.Dequeue(ctx, "work", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, []byte(`"new"`), second.Payload)
	assert.NotEqual(t, first.ReservedBy, second.ReservedBy)

	// The stale reservation can no longer complete the message away.
	require.NoError(t, s.Complete(ctx, "work", first))
	msgs, err := s.Messages(ctx, "work")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestEnqueue_StampsTraceContext(t *testing.T) {
	s := newTestStore(t)

	ctx := core.WithTraceContext(context.Background(), core.TraceContext{
		Traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
		Tracestate:  "vendor=1",
	})
	require.NoError(t, s.Enqueue(ctx, "work", []byte(`1`), core.EnqueueOptions{}))

	got, err := s.Dequeue(context.Background(), "work", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", got.Traceparent)
	assert.Equal(t, "vendor=1", got.Tracestate)
}

func TestEnqueue_RejectsOversizedPayload(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	payload := make([]byte, core.MaxPayloadSize+1)
	err := s.Enqueue(ctx, "work", payload, core.EnqueueOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrPayloadTooLarge)
}

func TestEnqueue_RejectsInvalidPartition(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.Enqueue(ctx, "cron/jobs", []byte(`1`), core.EnqueueOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidPartition)
}

// ---------------------------------------------------------------------------
// Dequeue
// ---------------------------------------------------------------------------

func TestDequeue_ClaimsMessageAndHidesIt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	before := time.Now()
	require.NoError(t, s.Enqueue(ctx, "work", []byte(`{"n":1}`), core.EnqueueOptions{}))

	got, err := s.Dequeue(ctx, "work", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, got, "should return a message")

	assert.Equal(t, []byte(`{"n":1}`), got.Payload)
	assert.NotEmpty(t, got.ReservedBy, "reservation id should be set")
	assert.True(t, got.HiddenUntil.After(before.Add(50*time.Minute)), "visibility deadline should be pushed out")

	second, err := s.Dequeue(ctx, "work", time.Hour)
	require.NoError(t, err)
	assert.Nil(t, second, "reserved message should be hidden from other consumers")
}

func TestDequeue_ReturnsNilWhenEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	got, err := s.Dequeue(ctx, "work", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, got, "empty partition should return nil")
}

func TestDequeue_RespectsPartitionIsolation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Enqueue(ctx, "emails", []byte(`1`), core.EnqueueOptions{}))

	got, err := s.Dequeue(ctx, "reports", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, got, "message in another partition should not be claimable")
}

func TestDequeue_PrefersOldestVisibleMessage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Negative delays place visibility deadlines in the past without sleeping.
	require.NoError(t, s.Enqueue(ctx, "work", []byte(`"second"`), core.EnqueueOptions{Delay: -time.Hour}))
	require.NoError(t, s.Enqueue(ctx, "work", []byte(`"first"`), core.EnqueueOptions{Delay: -2 * time.Hour}))

	got, err := s.Dequeue(ctx, "work", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []byte(`"first"`), got.Payload)
}

func TestDequeue_RedeliversAfterReservationLapses(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Enqueue(ctx, "work", []byte(`1`), core.EnqueueOptions{}))

	first, err := s.Dequeue(ctx, "work", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Manually push the visibility deadline into the past as if the
	// reservation had timed out.
	past := time.Now().Add(-time.Minute)
	err = s.db.Model(&core.Message{}).
		Where("partition = ? AND key = ?", "work", first.Key).
		Update("hidden_until", past).Error
	require.NoError(t, err)

	second, err := s.Dequeue(ctx, "work", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, second, "lapsed message should be redelivered")
	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, first.Payload, second.Payload)
	assert.NotEqual(t, first.ReservedBy, second.ReservedBy, "redelivery should mint a fresh reservation")
}

// ---------------------------------------------------------------------------
// Complete
// ---------------------------------------------------------------------------

func TestComplete_RemovesClaimedMessage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Enqueue(ctx, "work", []byte(`1`), core.EnqueueOptions{}))

	got, err := s.Dequeue(ctx, "work", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NoError(t, s.Complete(ctx, "work", got))

	msgs, err := s.Messages(ctx, "work")
	require.NoError(t, err)
	assert.Empty(t, msgs, "completed message should be deleted")
}

func TestComplete_IsNoOpWhenReservationLapsed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Enqueue(ctx, "work", []byte(`1`), core.EnqueueOptions{}))

	first, err := s.Dequeue(ctx, "work", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, first)

	past := time.Now().Add(-time.Minute)
	err = s.db.Model(&core.Message{}).
		Where("partition = ? AND key = ?", "work", first.Key).
		Update("hidden_until", past).Error
	require.NoError(t, err)

	second, err := s.Dequeue(ctx, "work", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, second)

	// The first consumer finishing late must not delete the message out from
	// under the consumer that now owns it.
	require.NoError(t, s.Complete(ctx, "work", first))
	msgs, err := s.Messages(ctx, "work")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	require.NoError(t, s.Complete(ctx, "work", second))
	msgs, err = s.Messages(ctx, "work")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestComplete_IgnoresUnreservedMessage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Enqueue(ctx, "work", []byte(`1`), core.EnqueueOptions{Key: "job"}))

	// A message that was never dequeued carries no reservation and must not
	// be deletable.
	require.NoError(t, s.Complete(ctx, "work", &core.Message{Partition: "work", Key: "job"}))

	msgs, err := s.Messages(ctx, "work")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

// ---------------------------------------------------------------------------
// Introspection
// ---------------------------------------------------------------------------

func TestStats_CountsMessagesByState(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Enqueue(ctx, "work", []byte(`1`), core.EnqueueOptions{}))
	require.NoError(t, s.Enqueue(ctx, "work", []byte(`2`), core.EnqueueOptions{}))
	require.NoError(t, s.Enqueue(ctx, "work", []byte(`3`), core.EnqueueOptions{Delay: time.Hour}))
	require.NoError(t, s.Enqueue(ctx, "cron", []byte(`4`), core.EnqueueOptions{}))

	// Reserve one of the ready work messages.
	got, err := s.Dequeue(ctx, "work", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, got)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "cron", stats[0].Partition, "partitions should be sorted")
	assert.Equal(t, int64(1), stats[0].Ready)

	assert.Equal(t, "work", stats[1].Partition)
	assert.Equal(t, int64(1), stats[1].Ready)
	assert.Equal(t, int64(1), stats[1].Reserved)
	assert.Equal(t, int64(1), stats[1].Scheduled)
}

func TestMessages_ListsPartitionInDeliveryOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Enqueue(ctx, "work", []byte(`"later"`), core.EnqueueOptions{Delay: time.Hour}))
	require.NoError(t, s.Enqueue(ctx, "work", []byte(`"sooner"`), core.EnqueueOptions{}))
	require.NoError(t, s.Enqueue(ctx, "other", []byte(`"elsewhere"`), core.EnqueueOptions{}))

	msgs, err := s.Messages(ctx, "work")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, []byte(`"sooner"`), msgs[0].Payload)
	assert.Equal(t, []byte(`"later"`), msgs[1].Payload)
}

func TestPartitions_ReturnsDistinctKVPartitions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Set(ctx, "todoist::task", "a", []byte(`1`)))
	require.NoError(t, s.Set(ctx, "todoist::task", "b", []byte(`2`)))
	require.NoError(t, s.Set(ctx, "collector::github-releases", "repo", []byte(`3`)))

	partitions, err := s.Partitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"collector::github-releases", "todoist::task"}, partitions)
}
