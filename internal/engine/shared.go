package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"vidscribe/internal/logging"
)

const lockRetryDelay = 250 * time.Millisecond

// Factory builds an Engine on first use.
type Factory func(ctx context.Context) (Engine, error)

// SharedOption configures a Shared handle.
type SharedOption func(*Shared)

// WithFileLock makes Acquire also hold an exclusive lock on path so separate
// processes serialize access to the same model cache.
func WithFileLock(path string) SharedOption {
	return func(s *Shared) {
		if path != "" {
			s.lock = flock.New(path)
			s.unlock = s.lock.Unlock
		}
	}
}

// WithSharedLogger sets the logger used for lock release warnings.
func WithSharedLogger(logger *slog.Logger) SharedOption {
	return func(s *Shared) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Shared is a process-wide engine handle. The engine is built lazily by the
// factory on the first successful Acquire and reused afterwards; a failed
// build is retried on the next Acquire. Holders get exclusive access until
// they call release.
type Shared struct {
	factory Factory
	sem     chan struct{}
	lock    *flock.Flock
	unlock  func() error
	logger  *slog.Logger

	mu     sync.Mutex
	engine Engine
}

// NewShared constructs a Shared handle around factory.
func NewShared(factory Factory, opts ...SharedOption) *Shared {
	s := &Shared{
		factory: factory,
		sem:     make(chan struct{}, 1),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "engine")
	return s
}

// Acquire blocks until the engine is free or ctx ends. The returned release
// function must be called exactly once; extra calls are ignored.
func (s *Shared) Acquire(ctx context.Context) (Engine, func(), error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	unlockSem := func() { <-s.sem }

	if s.lock != nil {
		if err := os.MkdirAll(filepath.Dir(s.lock.Path()), 0o755); err != nil {
			unlockSem()
			return nil, nil, fmt.Errorf("engine lock directory: %w", err)
		}
		ok, err := s.lock.TryLockContext(ctx, lockRetryDelay)
		if err != nil || !ok {
			unlockSem()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, ctxErr
			}
			if err == nil {
				err = errors.New("lock not acquired")
			}
			return nil, nil, fmt.Errorf("engine lock %s: %w", s.lock.Path(), err)
		}
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			if s.lock != nil {
				if err := s.unlock(); err != nil {
					logging.WarnWithContext(logging.WithContext(ctx, s.logger), "release engine lock failed", "engine_lock_release_failed",
						logging.String("path", s.lock.Path()),
						logging.Error(err),
						logging.String(logging.FieldErrorHint, "remove the lock file if no vidscribe process is running"),
						logging.String(logging.FieldImpact, "other processes may wait for the local engine"),
					)
				}
			}
			unlockSem()
		})
	}

	engine, err := s.get(ctx)
	if err != nil {
		release()
		return nil, nil, err
	}
	return engine, release, nil
}

func (s *Shared) get(ctx context.Context) (Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine != nil {
		return s.engine, nil
	}
	if s.factory == nil {
		return nil, errors.New("engine factory not configured")
	}
	engine, err := s.factory(ctx)
	if err != nil {
		return nil, err
	}
	s.engine = engine
	return engine, nil
}

// Static returns a Shared handle around an already constructed engine.
func Static(engine Engine) *Shared {
	return NewShared(func(context.Context) (Engine, error) { return engine, nil })
}
