package engine

import (
	"errors"
	"fmt"
	"time"

	"vidscribe/internal/services"
)

// Kind separates failures worth retrying from those that are not.
type Kind string

const (
	KindTransient Kind = "transient"
	KindPermanent Kind = "permanent"
)

// RecognitionError is a chunk-scoped backend failure.
type RecognitionError struct {
	Kind   Kind
	Engine string
	// RetryAfter is a server supplied hint for transient failures.
	RetryAfter time.Duration
	Err        error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("%s recognition (%s): %v", e.Engine, e.Kind, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// Is matches services.ErrRecognition, and services.ErrTransient for
// transient failures.
func (e *RecognitionError) Is(target error) bool {
	switch target {
	case services.ErrRecognition:
		return true
	case services.ErrTransient:
		return e.Kind == KindTransient
	}
	return false
}

// Transient wraps err as a retryable recognition failure.
func Transient(engine string, err error) error {
	return &RecognitionError{Kind: KindTransient, Engine: engine, Err: err}
}

// Permanent wraps err as a non-retryable recognition failure.
func Permanent(engine string, err error) error {
	return &RecognitionError{Kind: KindPermanent, Engine: engine, Err: err}
}

// IsPermanent reports whether err is a permanent recognition failure.
// Unclassified errors are treated as transient.
func IsPermanent(err error) bool {
	var recErr *RecognitionError
	return errors.As(err, &recErr) && recErr.Kind == KindPermanent
}

func retryAfter(err error) time.Duration {
	var recErr *RecognitionError
	if errors.As(err, &recErr) {
		return recErr.RetryAfter
	}
	return 0
}
