// Package workflow wires collectors to publishers on a cron schedule.
//
// The cron scheduler keeps one self-rescheduling timer per schedule on the
// "cron" queue partition; each firing re-enqueues the timer and fans the
// schedule's payload out to its kind partition, where the workflow handlers
// (GitHub releases and notifications) run a collection pass and dispatch the
// resulting task operations.
package workflow
