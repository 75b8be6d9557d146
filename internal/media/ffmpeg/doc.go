// Package ffmpeg builds ffmpeg argument lists for the render pipeline and
// decodes ffmpeg's textual progress output.
//
// Argument builders are pure so they can be asserted in tests without a real
// ffmpeg. Progress decoding works over a lazy sequence of output lines and
// yields elapsed media time in seconds for every status line that carries a
// time= marker.
package ffmpeg
