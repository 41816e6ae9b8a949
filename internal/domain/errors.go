package domain

import "errors"

// Duration parsing failures. Each is wrapped with the offending input.
var (
	ErrInvalidFormat       = errors.New("invalid duration format")
	ErrNonPositiveDuration = errors.New("duration must be greater than zero")
	ErrDurationTooLong     = errors.New("duration exceeds 24 hours")
)

// Draft validation failures.
var (
	ErrMissingRequiredField  = errors.New("missing required field")
	ErrInvalidSeverity       = errors.New("invalid severity")
	ErrIncompleteCoordinates = errors.New("latitude and longitude must be set together")
	ErrFutureDate            = errors.New("date is in the future")
	ErrInvalidFormKind       = errors.New("invalid form kind")
)

// ErrCorruptCollection is returned when stored content cannot be decoded.
var ErrCorruptCollection = errors.New("stored event collection is malformed")

// ErrInvalidWindow is returned for an unrecognized time window label.
var ErrInvalidWindow = errors.New("invalid time window")

// IsValidationError reports whether err is caused by caller input rather
// than by storage or transport.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidFormat,
		ErrNonPositiveDuration,
		ErrDurationTooLong,
		ErrMissingRequiredField,
		ErrInvalidSeverity,
		ErrIncompleteCoordinates,
		ErrFutureDate,
		ErrInvalidFormKind,
		ErrInvalidWindow,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
