package reference

import (
	"fmt"

	"vidscribe/internal/services"
)

// InvalidReferenceError reports malformed or unsupported input. It is raised
// before any network activity.
type InvalidReferenceError struct {
	Raw    string
	Reason string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid video reference %q: %s", e.Raw, e.Reason)
}

// Is matches services.ErrInvalidReference.
func (e *InvalidReferenceError) Is(target error) bool {
	return target == services.ErrInvalidReference
}

func invalid(raw, reason string) error {
	return &InvalidReferenceError{Raw: raw, Reason: reason}
}
