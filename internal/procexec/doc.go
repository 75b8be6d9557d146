// Package procexec runs external tools (the recording decoder, ffmpeg, the
// capture helper) with a deadline, streams their output line by line, and
// keeps only a bounded tail of it for error reports.
//
// Failures are tagged with the services error markers: an exceeded deadline
// is ErrTimeout, a missing binary or non-zero exit is ErrSubprocess. The
// Result is returned alongside the error so callers can still inspect the
// exit code and any output the tool managed to write.
package procexec
