// Package daemon coordinates a fragreel process that drives the render
// pipeline.
//
// It wires configuration, the SQLite store, the ingestion workflow, the
// render pipeline and the local API into a single lifecycle, holding a flock
// on the workspace lock file so only one process renders against a data
// directory at a time. The CLI "render --wait", "import --wait" and "serve"
// commands run through it; read-only commands open the store directly.
package daemon
