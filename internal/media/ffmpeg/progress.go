package ffmpeg

import (
	"iter"
	"regexp"
	"strconv"
)

var timePattern = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// ParseTime extracts the elapsed media time from an ffmpeg status line.
func ParseTime(line string) (float64, bool) {
	m := timePattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	hours, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	return float64(hours*3600+minutes*60) + seconds, true
}

// Progress yields the elapsed time of every line that carries one.
func Progress(lines iter.Seq[string]) iter.Seq[float64] {
	return func(yield func(float64) bool) {
		for line := range lines {
			if t, ok := ParseTime(line); ok {
				if !yield(t) {
					return
				}
			}
		}
	}
}

// Band maps elapsed seconds against an expected duration onto the
// [lo, hi] percent band.
func Band(elapsed, expected, lo, hi float64) float64 {
	if expected <= 0 {
		return lo
	}
	pct := lo + elapsed/expected*(hi-lo)
	if pct < lo {
		return lo
	}
	if pct > hi {
		return hi
	}
	return pct
}
