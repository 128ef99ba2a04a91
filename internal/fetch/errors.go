package fetch

import (
	"fmt"

	"vidscribe/internal/services"
)

// Reason classifies why retrieval failed.
type Reason string

const (
	ReasonNoAudioTrack      Reason = "no_audio_track"
	ReasonNetworkFailure    Reason = "network_failure"
	ReasonSourceUnavailable Reason = "source_unavailable"
	ReasonToolFailure       Reason = "tool_failure"
)

// DownloadError aborts a transcription request.
type DownloadError struct {
	Reason    Reason
	Reference string
	Err       error
}

func (e *DownloadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("download %s: %s", e.Reference, e.Reason)
	}
	return fmt.Sprintf("download %s: %s: %v", e.Reference, e.Reason, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Is matches services.ErrDownload.
func (e *DownloadError) Is(target error) bool {
	return target == services.ErrDownload
}
