// Package publish contains the jobs that push work into the task manager.
// Each publisher is a job.Handler consuming its own queue partition, so a
// Todoist outage only stalls these partitions while collectors and the cron
// scheduler keep running.
package publish
