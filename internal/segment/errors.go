package segment

import (
	"fmt"

	"vidscribe/internal/services"
)

// SegmentationError indicates corrupt or empty audio. It aborts the request.
type SegmentationError struct {
	Reason string
	Err    error
}

func (e *SegmentationError) Error() string {
	if e.Err == nil {
		return "segmentation: " + e.Reason
	}
	return fmt.Sprintf("segmentation: %s: %v", e.Reason, e.Err)
}

func (e *SegmentationError) Unwrap() error { return e.Err }

// Is matches services.ErrSegmentation.
func (e *SegmentationError) Is(target error) bool {
	return target == services.ErrSegmentation
}
