package engine

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"vidscribe/internal/logging"
)

func TestSharedLogsLockReleaseFailure(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	lockPath := filepath.Join(t.TempDir(), "engine.lock")
	shared := Static(&throttledEngine{})
	WithFileLock(lockPath)(shared)
	WithSharedLogger(logger)(shared)
	realUnlock := shared.unlock
	shared.unlock = func() error {
		_ = realUnlock()
		return errors.New("bad file descriptor")
	}

	_, release, err := shared.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()

	out := buf.String()
	if !strings.Contains(out, "engine_lock_release_failed") || !strings.Contains(out, lockPath) {
		t.Fatalf("expected lock release warning, got %q", out)
	}

	if _, release, err := shared.Acquire(context.Background()); err != nil {
		t.Fatalf("semaphore must be released after a failed unlock: %v", err)
	} else {
		release()
	}
}
