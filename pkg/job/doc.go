// Package job provides the typed job execution loop.
//
// This package includes:
//   - Handler: the per-partition processing contract
//   - Dispatch: JSON-encoding enqueue helper with idempotency and delay options
//   - Runner: claims messages one at a time and drives a handler
//
// A message is removed from its partition only after the handler returns nil.
// Failed messages are redelivered once their reservation window lapses, with
// no retry cap and no dead-letter queue.
//
// Most users should import the root package github.com/SierraSoftworks/automate
// which re-exports the pieces needed to define and run jobs.
package job
