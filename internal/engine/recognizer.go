package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vidscribe/internal/logging"
	"vidscribe/internal/segment"
	"vidscribe/internal/services"
)

const (
	defaultRetryLimit = 3
	defaultBaseDelay  = time.Second
	defaultMaxDelay   = 30 * time.Second
)

// RetryPolicy bounds recognition attempts per chunk. Limit counts every
// attempt including the first.
type RetryPolicy struct {
	Limit     int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Limit <= 0 {
		p.Limit = defaultRetryLimit
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultMaxDelay
	}
	return p
}

// backoff returns the delay before attempt+1, doubling from BaseDelay.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt && delay < p.MaxDelay; i++ {
		delay *= 2
	}
	return min(delay, p.MaxDelay)
}

// Recognizer applies the retry policy around an Engine. It never fails a
// chunk: exhausted or permanent failures become an empty-text result with a
// warning. The only error it returns is context cancellation.
type Recognizer struct {
	engine Engine
	policy RetryPolicy
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRecognizer wraps engine with policy.
func NewRecognizer(engine Engine, policy RetryPolicy, logger *slog.Logger) *Recognizer {
	return &Recognizer{
		engine: engine,
		policy: policy.normalized(),
		logger: logging.NewComponentLogger(logger, "recognizer"),
		sleep:  sleepContext,
	}
}

// Recognize runs the engine on chunk, retrying transient failures.
func (r *Recognizer) Recognize(ctx context.Context, chunk segment.Chunk, languageHint string) (Result, error) {
	ctx = services.WithChunkIndex(ctx, chunk.Index)
	logger := logging.WithContext(ctx, r.logger)

	var lastErr error
	for attempt := 1; attempt <= r.policy.Limit; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		result, err := r.engine.Recognize(ctx, chunk, languageHint)
		if err == nil {
			result.ChunkIndex = chunk.Index
			result.Text = strings.TrimSpace(result.Text)
			if attempt > 1 {
				logger.Info("chunk recognized after retry", logging.Int("attempt", attempt))
			}
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		if errors.Is(err, context.Canceled) {
			return Result{}, err
		}
		lastErr = err
		if IsPermanent(err) {
			logging.WarnWithContext(logger, "chunk recognition failed permanently", "recognition_permanent",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check engine credentials and audio format"),
				logging.String(logging.FieldImpact, "chunk transcribed as empty text"),
			)
			return degraded(chunk, fmt.Sprintf("chunk %d: recognition failed: %v", chunk.Index, err)), nil
		}
		if attempt == r.policy.Limit {
			break
		}
		delay := min(max(r.policy.backoff(attempt), retryAfter(err)), r.policy.MaxDelay)
		logger.Info("chunk recognition failed; retrying",
			logging.Int("attempt", attempt),
			logging.Int("limit", r.policy.Limit),
			logging.Duration("backoff", delay),
			logging.Error(err),
		)
		if err := r.sleep(ctx, delay); err != nil {
			return Result{}, err
		}
	}

	logging.WarnWithContext(logger, "chunk recognition retries exhausted", "recognition_retries_exhausted",
		logging.Int("attempts", r.policy.Limit),
		logging.Error(lastErr),
		logging.String(logging.FieldErrorHint, "check engine availability or raise engine.retry_limit"),
		logging.String(logging.FieldImpact, "chunk transcribed as empty text"),
	)
	return degraded(chunk, fmt.Sprintf("chunk %d: recognition failed after %d attempts: %v", chunk.Index, r.policy.Limit, lastErr)), nil
}

// Name returns the wrapped engine name.
func (r *Recognizer) Name() string {
	return r.engine.Name()
}

func degraded(chunk segment.Chunk, warning string) Result {
	return Result{ChunkIndex: chunk.Index, Warning: warning}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
