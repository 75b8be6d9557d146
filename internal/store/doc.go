// Package store persists ingested matches and everything derived from them in
// SQLite: rounds, kill events, player scoreboards, highlights, and video task
// history.
//
// The schema is embedded and versioned; a version mismatch fails Open rather
// than migrating in place. Writes that touch several tables run in a single
// transaction, and every write path retries when SQLite reports contention.
// Deleting a match cascades to all dependent rows.
package store
