// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect returns the parsed report; Verify additionally rejects files that
// carry no usable video stream and is what the render pipeline uses to check
// its output before marking a task complete.
package ffprobe
