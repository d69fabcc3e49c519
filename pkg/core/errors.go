package core

import (
	"errors"
)

// Validation errors
var (
	ErrInvalidPartition = errors.New("automate: invalid partition name (must be alphanumeric, start with letter)")
	ErrPartitionTooLong = errors.New("automate: partition name too long")
	ErrKeyEmpty         = errors.New("automate: key must not be empty")
	ErrKeyTooLong       = errors.New("automate: key exceeds maximum length")
	ErrPayloadTooLarge  = errors.New("automate: payload exceeds size limit")
)
