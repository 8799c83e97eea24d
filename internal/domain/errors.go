package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateIngestion reports a storage-level uniqueness violation on ingested items.
	ErrDuplicateIngestion = errors.New("duplicate ingested item")
	// ErrInvalidTransition is matched by every *TransitionError.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrStaleState means a compare-and-set update lost against a concurrent writer.
	ErrStaleState = errors.New("record changed concurrently")
	// ErrRetriesExhausted is returned when a retry would exceed the configured maximum.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrTruncatedUnrepairable means the generation output could not be repaired into an object.
	ErrTruncatedUnrepairable = errors.New("truncated response could not be repaired")
	// ErrUnknownStatus is returned when parsing a status value outside the closed set.
	ErrUnknownStatus = errors.New("unknown status")
)

// TransitionError describes a rejected state change.
type TransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s %s: cannot move from %s to %s", e.Entity, e.ID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is lets errors.Is(err, ErrInvalidTransition) match.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func transitionErr(entity, id string, from, to fmt.Stringer, reason string) error {
	return &TransitionError{Entity: entity, ID: id, From: from.String(), To: to.String(), Reason: reason}
}
