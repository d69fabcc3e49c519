// Package metrics exports Prometheus telemetry for the job runners and the
// queue. It attaches through the runner's observer hook and the store's
// stats view, so nothing in the core depends on it.
package metrics
