package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidState is the sentinel all InvalidStateError values unwrap to
	ErrInvalidState = errors.New("invalid job state")

	// ErrInvalidArgument is returned when a request carries an unknown status
	// or an unsold package size
	ErrInvalidArgument = errors.New("invalid argument")
)

// InvalidStateError rejects an operation against a job whose current status
// does not allow it, e.g. reporting against a terminal job or completing a
// job that was never claimed. Silent acceptance would mask a stale worker or
// a race, so these are always surfaced.
type InvalidStateError struct {
	JobID     string
	Status    string
	Operation string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("job %s is %s: %s not allowed", e.JobID, e.Status, e.Operation)
}

func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}
