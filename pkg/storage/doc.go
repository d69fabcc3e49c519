// Package storage provides the GORM-backed persistence layer.
//
// GormStore implements both core.KeyValueStore and core.Queue on top of a
// single SQLite database. The same store instance is shared by every runner
// and collector in the process; SQLite's single-writer model is respected by
// capping the connection pool rather than by locking in Go.
//
// Most users should import the root package github.com/SierraSoftworks/automate
// which provides Open() to create store instances.
package storage
