// Package services defines shared plumbing consumed by the ingestion, render
// and API layers.
//
// Key responsibilities:
//   - Context helpers that stamp match IDs, task IDs, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper. Markers decide whether a
//     render strategy failure falls through to the next strategy and which
//     status code the local API returns.
package services
