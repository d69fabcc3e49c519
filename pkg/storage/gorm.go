package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SierraSoftworks/automate/pkg/core"
)

// GormStore implements core.Store using GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates the necessary tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&core.Entry{}, &core.Message{})
}

// DB returns the underlying GORM handle.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// IsSQLite reports whether the store is backed by a SQLite database.
func (s *GormStore) IsSQLite() bool {
	if s.db == nil {
		return false
	}
	return s.db.Dialector.Name() == "sqlite"
}

// Get returns the value stored under partition/key, or nil when absent.
func (s *GormStore) Get(ctx context.Context, partition, key string) ([]byte, error) {
	if err := core.ValidatePartition(partition); err != nil {
		return nil, err
	}
	if err := core.ValidateKey(key); err != nil {
		return nil, err
	}

	var entry core.Entry
	err := s.db.WithContext(ctx).
		First(&entry, "partition = ? AND key = ?", partition, key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry.Value, nil
}

// Set stores value under partition/key, replacing any previous value.
func (s *GormStore) Set(ctx context.Context, partition, key string, value []byte) error {
	if err := core.ValidatePartition(partition); err != nil {
		return err
	}
	if err := core.ValidateKey(key); err != nil {
		return err
	}
	if err := core.ValidatePayload(value); err != nil {
		return err
	}

	entry := core.Entry{Partition: partition, Key: key, Value: value}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "partition"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&entry).Error
}

// Remove deletes the value stored under partition/key.
// Removing an absent key is not an error.
func (s *GormStore) Remove(ctx context.Context, partition, key string) error {
	if err := core.ValidatePartition(partition); err != nil {
		return err
	}
	if err := core.ValidateKey(key); err != nil {
		return err
	}

	return s.db.WithContext(ctx).
		Where("partition = ? AND key = ?", partition, key).
		Delete(&core.Entry{}).Error
}

// List returns every entry in a partition ordered by key.
func (s *GormStore) List(ctx context.Context, partition string) ([]core.Entry, error) {
	if err := core.ValidatePartition(partition); err != nil {
		return nil, err
	}

	var entries []core.Entry
	err := s.db.WithContext(ctx).
		Where("partition = ?", partition).
		Order("key ASC").
		Find(&entries).Error
	return entries, err
}

// Enqueue adds a message to a queue partition.
//
// Without a key the message is inserted under a random one. With a key the
// message upserts onto any existing row with the same (partition, key) pair:
// the payload and schedule are replaced and the reservation column is
// cleared, so a consumer holding the old reservation can no longer complete
// the message away.
func (s *GormStore) Enqueue(ctx context.Context, partition string, payload []byte, opts core.EnqueueOptions) error {
	if err := core.ValidatePartition(partition); err != nil {
		return err
	}
	if err := core.ValidatePayload(payload); err != nil {
		return err
	}
	if opts.Key != "" {
		if err := core.ValidateKey(opts.Key); err != nil {
			return err
		}
	}

	scheduled := time.Now().Add(opts.Delay)
	trace := core.TraceContextFrom(ctx)

	msg := core.Message{
		Partition:   partition,
		Key:         opts.Key,
		Payload:     payload,
		ScheduledAt: scheduled,
		HiddenUntil: scheduled,
		Traceparent: trace.Traceparent,
		Tracestate:  trace.Tracestate,
	}

	if msg.Key == "" {
		msg.Key = uuid.New().String()
		return s.db.WithContext(ctx).Create(&msg).Error
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "partition"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"payload", "scheduled_at", "hidden_until", "reserved_by", "traceparent", "tracestate",
			}),
		}).
		Create(&msg).Error
}

// Dequeue claims the next visible message in a partition, hiding it from
// other consumers until now+reserveFor. Returns nil when nothing is ready.
func (s *GormStore) Dequeue(ctx context.Context, partition string, reserveFor time.Duration) (*core.Message, error) {
	if err := core.ValidatePartition(partition); err != nil {
		return nil, err
	}

	var msg core.Message
	now := time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.
			Where("partition = ?", partition).
			Where("hidden_until <= ?", now).
			Order("hidden_until ASC").
			First(&msg)

		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil
			}
			return result.Error
		}

		msg.ReservedBy = uuid.New().String()
		msg.HiddenUntil = now.Add(reserveFor)

		return tx.Save(&msg).Error
	})

	if err != nil {
		return nil, err
	}
	if msg.Key == "" {
		return nil, nil
	}
	return &msg, nil
}

// Complete removes a claimed message from its partition.
//
// The delete is fenced on the reservation id: when the reservation has
// lapsed, or the message was replaced by a keyed enqueue, no row matches and
// Complete returns nil so the surviving message stays deliverable.
func (s *GormStore) Complete(ctx context.Context, partition string, msg *core.Message) error {
	if err := core.ValidatePartition(partition); err != nil {
		return err
	}
	if msg == nil || msg.ReservedBy == "" {
		return nil
	}

	return s.db.WithContext(ctx).
		Where("partition = ? AND key = ? AND reserved_by = ?", partition, msg.Key, msg.ReservedBy).
		Delete(&core.Message{}).Error
}
