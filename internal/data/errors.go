package data

import "errors"

var (
	// ErrJobNotFound is returned when a job record does not exist.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobExists is returned when inserting a job whose id is already taken.
	ErrJobExists = errors.New("job id already exists")
	// ErrJobNotWaiting is returned by position lookups when the job is not in
	// the waiting set of its queue (unknown, already claimed, or terminal).
	ErrJobNotWaiting = errors.New("job not found or already started")
	// ErrNoOutput is returned by a drain when no buffered output exists.
	ErrNoOutput = errors.New("no output")
	// ErrNoArtifact is returned when no artifact version exists for a job.
	ErrNoArtifact = errors.New("no artifact")
)
