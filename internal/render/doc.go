// Package render produces highlight videos.
//
// A Strategy is one way of producing a video: composing pre-recorded clip
// segments, scripting a live in-game capture, or synthesizing a placeholder
// card. Strategies share a check-then-execute interface so the pipeline can
// walk them in priority order. Templates are a fixed table of output
// profiles. The package also owns the import transcode and thumbnail helpers
// that run after a strategy succeeds.
package render
