// Package workflow ties ingestion together: it decodes a recording, runs the
// highlight detector over its kills and persists the match, its events and
// the detected highlights in one transaction.
//
// IngestDirectory fans a batch out over a bounded number of goroutines and
// keeps going when individual recordings fail; the per-file errors are
// combined into the returned error. DeleteMatch removes a match and drops
// any live render tasks for its highlights.
package workflow
