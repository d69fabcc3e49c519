// Package github is a thin GitHub API boundary: a minimal client plus the
// collector sources that watch releases and notifications.
package github
