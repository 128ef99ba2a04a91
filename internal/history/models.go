package history

import (
	"time"

	"vidscribe/internal/services"
)

// Status represents the lifecycle state of a transcription run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = Status(services.OutcomeCompleted)
	StatusRejected  Status = Status(services.OutcomeRejected)
	StatusFailed    Status = Status(services.OutcomeFailed)
	StatusCanceled  Status = Status(services.OutcomeCanceled)
)

// StatusFromError maps a pipeline outcome onto a ledger status.
func StatusFromError(err error) Status {
	return Status(services.FailureOutcome(err))
}

// Run is one ledger row. Transcript text is never stored.
type Run struct {
	ID               string
	Reference        string
	CanonicalID      string
	Engine           string
	Status           Status
	ChunkCount       int
	WarningCount     int
	AudioSeconds     float64
	ElapsedSeconds   float64
	DetectedLanguage string
	ErrorMessage     string
	StartedAt        time.Time
	FinishedAt       *time.Time
}

// Finished reports whether the run reached a terminal status.
func (r *Run) Finished() bool {
	return r != nil && r.Status != StatusRunning
}
