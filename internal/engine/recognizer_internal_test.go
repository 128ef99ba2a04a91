package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"vidscribe/internal/segment"
)

type throttledEngine struct{ calls int }

func (e *throttledEngine) Name() string { return "throttled" }

func (e *throttledEngine) Recognize(context.Context, segment.Chunk, string) (Result, error) {
	e.calls++
	return Result{}, &RecognitionError{Kind: KindTransient, Engine: "throttled", RetryAfter: 6 * time.Hour, Err: errors.New("429")}
}

func TestRecognizerCapsRetryAfterAtMaxDelay(t *testing.T) {
	stub := &throttledEngine{}
	rec := NewRecognizer(stub, RetryPolicy{Limit: 3, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second}, nil)
	var slept []time.Duration
	rec.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	result, err := rec.Recognize(context.Background(), segment.Chunk{Index: 0}, "")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if result.Warning == "" {
		t.Fatal("expected degraded chunk after retries")
	}
	if stub.calls != 3 || len(slept) != 2 {
		t.Fatalf("expected 3 attempts and 2 sleeps, got %d and %v", stub.calls, slept)
	}
	for _, d := range slept {
		if d != time.Second {
			t.Fatalf("expected sleeps capped at 1s, got %v", slept)
		}
	}
}

func TestRecognizerHonoursShortRetryAfter(t *testing.T) {
	rec := NewRecognizer(&throttledEngine{}, RetryPolicy{Limit: 2, MaxDelay: 24 * time.Hour}, nil)
	var slept []time.Duration
	rec.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	if _, err := rec.Recognize(context.Background(), segment.Chunk{}, ""); err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(slept) != 1 || slept[0] != 6*time.Hour {
		t.Fatalf("expected server delay under the cap to be used, got %v", slept)
	}
}
