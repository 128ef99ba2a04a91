package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")

	ErrInvalidReference = errors.New("invalid video reference")
	ErrDownload         = errors.New("download failed")
	ErrSegmentation     = errors.New("segmentation failed")
	ErrRecognition      = errors.New("recognition failed")
)

// Outcome summarizes how a transcription run ended for the run ledger and
// process exit codes.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
	OutcomeCanceled  Outcome = "canceled"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureOutcome maps a run error to the outcome recorded for it. Input and
// configuration problems are rejections; everything else is a failure.
func FailureOutcome(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeCompleted
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	case errors.Is(err, ErrInvalidReference), errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}

// ExitCode maps an error to the CLI process exit status.
func ExitCode(err error) int {
	switch FailureOutcome(err) {
	case OutcomeCompleted:
		return 0
	case OutcomeRejected:
		return 2
	case OutcomeCanceled:
		return 130
	default:
		return 1
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
