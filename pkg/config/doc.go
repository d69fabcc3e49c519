// Package config loads and watches the daemon's YAML configuration.
// Parsing is strict: unknown fields and invalid schedules fail the load
// rather than silently running a misconfigured automation.
package config
