package trending

import (
	"errors"
	"fmt"
)

// ErrorKind classifies where in the pipeline a failure happened.
type ErrorKind string

// Stage error kinds. MaxRetriesExceeded is deliberately absent: exhausting
// retries is a controller outcome, not an error value.
const (
	ErrKindFetch   ErrorKind = "fetch_error"
	ErrKindParse   ErrorKind = "parse_error"
	ErrKindPersist ErrorKind = "persist_error"
	ErrKindUnknown ErrorKind = "unknown_error"
)

// StageError wraps a stage failure with its kind so callers can attribute
// failures without string matching.
type StageError struct {
	Kind ErrorKind
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// WrapStage tags err with the given kind. A nil err returns nil.
func WrapStage(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Kind: kind, Err: err}
}

// KindOf extracts the stage kind from err, defaulting to ErrKindUnknown.
func KindOf(err error) ErrorKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrKindUnknown
}
