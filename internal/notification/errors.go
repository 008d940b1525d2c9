package notification

import (
	"errors"
	"fmt"
)

var (
	// ErrPermanent wraps a send failure that must not be retried. Senders
	// return it (wrapped) when the destination is missing or the upstream
	// rejected the message outright.
	ErrPermanent = errors.New("permanent send failure")

	// ErrNotFound is returned by stores when a notification does not exist.
	ErrNotFound = errors.New("notification not found")

	// ErrTemplateNotFound is returned when no template exists for a type.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrExpired aborts in-flight delivery attempts past the notification
	// expiry.
	ErrExpired = errors.New("notification expired")
)

// ValidationError rejects structurally invalid input before resolution. It is
// surfaced synchronously to the submitter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid notification: %s %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
