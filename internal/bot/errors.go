package bot

import (
	"errors"

	"github.com/ashureev/plate-labs/internal/research"
)

var (
	// ErrCountMismatch means the number of object numbers differs from the declared count.
	ErrCountMismatch = errors.New("object count mismatch")
	// ErrMalformedInput means the input could not be parsed.
	ErrMalformedInput = errors.New("malformed input")
	// ErrDeliveryFailure means the document could not be rendered or stored.
	ErrDeliveryFailure = errors.New("document delivery failed")

	errPublisherNotConfigured = errors.New("no document publisher configured")
)

// ErrorCode returns a stable identifier for a reply error, or "" for nil.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, research.ErrDuplicateName):
		return "duplicate_name"
	case errors.Is(err, research.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrCountMismatch):
		return "count_mismatch"
	case errors.Is(err, ErrMalformedInput), errors.Is(err, research.ErrInvalidName):
		return "malformed_input"
	case errors.Is(err, ErrDeliveryFailure):
		return "delivery_failure"
	default:
		return "internal"
	}
}
