// Package collector provides change detection over external data sources.
//
// This package includes:
//   - Differential: diffs a full fetch against the previously seen ID set
//   - Incremental: tracks a high-watermark and fetches only newer items
//
// Both runners persist their state in the key-value partition
// "collector::<kind>" under the source's key, so collections survive process
// restarts and never re-announce items they already reported.
package collector
