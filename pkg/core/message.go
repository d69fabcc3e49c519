package core

import (
	"time"
)

// Entry represents a row in the key/value store.
type Entry struct {
	Partition string `gorm:"primaryKey;size:255"`
	Key       string `gorm:"primaryKey;size:255"`
	Value     []byte `gorm:"type:bytes"`
}

// TableName overrides the default gorm table name.
func (Entry) TableName() string { return "kv" }

// Message represents a row in the durable queue. The key doubles as the
// idempotency key: enqueueing with an existing (partition, key) pair replaces
// the pending message instead of adding a second one.
type Message struct {
	Partition   string    `gorm:"primaryKey;size:255;index:idx_queues_ready,priority:1"`
	Key         string    `gorm:"primaryKey;size:255"`
	Payload     []byte    `gorm:"type:bytes"`
	ScheduledAt time.Time // When the message was meant to become visible
	HiddenUntil time.Time `gorm:"index:idx_queues_ready,priority:2"`
	ReservedBy  string    `gorm:"size:36"` // Reservation ID held by the current claimant
	Traceparent string    `gorm:"size:255"`
	Tracestate  string    `gorm:"size:255"`
}

// TableName overrides the default gorm table name.
func (Message) TableName() string { return "queues" }
