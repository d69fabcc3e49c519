// Package web is the daemon's HTTP surface: the webhook receiver, a
// read-only JSON view over the store for operators, health and metrics
// endpoints. Webhook deliveries are enqueued as-is; nothing here processes
// them.
package web
