package logging

import "testing"

func TestNewProgressSamplerDefaults(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 10},
		{"default bucket size for negative", -1, 10},
		{"custom bucket size", 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSamplerNilLogsEverything(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "clip_composer") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
}

func TestProgressSamplerBucketsAndStrategyChanges(t *testing.T) {
	s := NewProgressSampler(10)

	if !s.ShouldLog(10, "clip_composer") {
		t.Fatal("first update should log")
	}
	if s.ShouldLog(14, "clip_composer") {
		t.Fatal("update inside the same bucket should not log")
	}
	if !s.ShouldLog(21, "clip_composer") {
		t.Fatal("crossing a bucket should log")
	}
	if !s.ShouldLog(5, "placeholder") {
		t.Fatal("strategy change should log and reset buckets")
	}
	if s.ShouldLog(6, "placeholder") {
		t.Fatal("same bucket after reset should not log")
	}
	if !s.ShouldLog(100, "placeholder") {
		t.Fatal("completion should log")
	}
}
