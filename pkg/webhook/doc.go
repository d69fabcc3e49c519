// Package webhook carries inbound webhook deliveries through the queue. The
// HTTP receiver only captures an Event envelope and enqueues it; all
// processing happens later in a Forwarder job, so a burst of deliveries or a
// slow downstream never blocks the receiving request.
package webhook
