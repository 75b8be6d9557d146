// Package api serves the local HTTP API: match and highlight browsing,
// ingestion, render and import requests, task tracking and a websocket feed
// of task progress events.
//
// Handlers translate the error taxonomy in internal/services into status
// codes and always answer failures with a {"error": "..."} body. Payloads
// reuse the domain models' snake_case JSON directly; the response wrappers in
// this package only add the collection envelopes.
//
// The server binds to the configured address (loopback by default) and has
// no authentication; it is meant for a local dashboard.
package api
