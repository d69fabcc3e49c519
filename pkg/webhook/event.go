package webhook

import (
	"encoding/json"
	"fmt"
)

// Event is the raw capture of one webhook delivery. The body is kept as-is:
// provider-specific parsing and signature verification belong to whichever
// job consumes the partition.
type Event struct {
	Body    string            `json:"body"`
	Query   string            `json:"query"`
	Headers map[string]string `json:"headers"`
}

// JSON decodes the event body into the payload type a provider sends.
func JSON[T any](event Event) (T, error) {
	var payload T
	if err := json.Unmarshal([]byte(event.Body), &payload); err != nil {
		return payload, fmt.Errorf("failed to decode webhook payload: %w", err)
	}
	return payload, nil
}

// Partition returns the queue partition events for the named webhook are
// enqueued into.
func Partition(name string) string {
	return "webhook::" + name
}
