// Package pipeline drives video tasks for highlights.
//
// CreateTask validates the request, registers a pending task and returns its
// snapshot at once; a goroutine then walks the render strategy chain. Tasks
// move pending → processing → completed or error, never leave a terminal
// state, and never report lower progress than before. The registry owns the
// live tasks with one lock per entry, so updates to one task never wait on
// another. Every change is published to Reporter subscribers and status
// changes are persisted through the store.
package pipeline
