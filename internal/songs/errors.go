package songs

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a request that is missing or has malformed fields.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned for unknown song ids.
	ErrNotFound = errors.New("song not found")
	// ErrVersionNotFound is returned when a song exists but the version does not.
	ErrVersionNotFound = errors.New("version not found")
	// ErrStorage wraps read/write failures of the backing store.
	ErrStorage = errors.New("storage failure")
	// ErrCorrupt marks a stored document that cannot be decoded or breaks the document layout rules.
	ErrCorrupt = errors.New("corrupt song document")
	// ErrRegistrationUnavailable is reported when registration is requested without a registrar.
	ErrRegistrationUnavailable = errors.New("registration service not configured")
)

// ValidationError describes a rejected input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
