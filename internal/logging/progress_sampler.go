package logging

import "strings"

// ProgressSampler suppresses repetitive render progress logs while keeping a
// line whenever the strategy changes or the percentage crosses a bucket.
type ProgressSampler struct {
	bucketSize   float64
	lastStrategy string
	lastBucket   int
}

// NewProgressSampler constructs a sampler with the given bucket width in
// percent (default 10).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress update should be logged. A nil sampler
// logs everything.
func (s *ProgressSampler) ShouldLog(percent float64, strategy string) bool {
	if s == nil {
		return true
	}
	strategy = strings.TrimSpace(strategy)
	emit := false
	if strategy != "" && strategy != s.lastStrategy {
		s.lastStrategy = strategy
		s.lastBucket = -1
		emit = true
	}
	if percent >= 0 {
		bucket := int(percent / s.bucketSize)
		if bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}
