// Package core provides the fundamental types and interfaces for the automate package.
//
// This package contains:
//   - Entry and Message data models with GORM annotations
//   - KeyValueStore and Queue interfaces defining the persistence contract
//   - Typed partition views and the TTL cache helper
//   - Trace-context propagation across the queue boundary
//
// Most users should import the root package github.com/SierraSoftworks/automate
// instead of this package directly.
package core
