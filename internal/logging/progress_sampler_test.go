package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 5},
		{"default bucket size for negative", -1, 5},
		{"custom bucket size", 10, 10},
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

func TestProgressSamplerNilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "stage") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSamplerStageAndBuckets(t *testing.T) {
	s := NewProgressSampler(10)

	if !s.ShouldLog(0, "download") {
		t.Error("first stage should log")
	}
	if s.ShouldLog(4, "download") {
		t.Error("same bucket should not log again")
	}
	if !s.ShouldLog(12, "download") {
		t.Error("new bucket should log")
	}
	if !s.ShouldLog(12, "recognition") {
		t.Error("stage change should log")
	}
	if s.ShouldLog(-1, "recognition") {
		t.Error("unknown percent on same stage should not log")
	}
	if !s.ShouldLog(150, "recognition") {
		t.Error("completion should log")
	}
	if s.ShouldLog(100, "recognition") {
		t.Error("completion should log once")
	}

	s.Reset()
	if !s.ShouldLog(0, "recognition") {
		t.Error("reset should allow the same stage to log again")
	}
}
