package service

import "errors"

var (
	// ErrJobNotFound is returned when an operation names a job id the broker
	// has never seen.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobNotCancellable is returned when a cancel request hits a job that
	// already reached a terminal state.
	ErrJobNotCancellable = errors.New("job already completed or cancelled")
)
