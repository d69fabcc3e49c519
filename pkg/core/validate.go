package core

import (
	"regexp"
)

// Limits for stored names and payloads
const (
	// MaxPartitionLength is the maximum length for partition names
	MaxPartitionLength = 255

	// MaxKeyLength is the maximum length for keys and idempotency keys
	MaxKeyLength = 255

	// MaxPayloadSize is the maximum size in bytes for queue payloads (1MB)
	MaxPayloadSize = 1 << 20
)

// validPartition matches alphanumeric, hyphens, underscores, dots, and the
// "::" namespace separator
var validPartition = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_\-\.:]*$`)

// ValidatePartition validates a partition name
func ValidatePartition(name string) error {
	if name == "" {
		return ErrInvalidPartition
	}
	if len(name) > MaxPartitionLength {
		return ErrPartitionTooLong
	}
	if !validPartition.MatchString(name) {
		return ErrInvalidPartition
	}
	return nil
}

// ValidateKey validates a key. Keys are free-form (collector keys carry
// repository names and URLs) so only presence and length are checked.
func ValidateKey(key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	return nil
}

// ValidatePayload validates a payload size
func ValidatePayload(payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return ErrPayloadTooLarge
	}
	return nil
}
