// Package repositories implements SQLite persistence for run history.
//
// [RunRepository] stores one row per pipeline invocation, successful or not, with its
// resolved track IDs and diagnostics as JSON columns. History is write-mostly: the CLI lists
// and shows it, but nothing feeds it back into a run.
//
// Rows are soft deleted via deleted_at and excluded from queries by default.
//
// Sequence numbers give stable, human-readable ordering (run #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
