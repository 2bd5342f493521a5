// Package model defines the core data types and structures used throughout the broker.
package model

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobState represents the lifecycle state of a job.
type JobState string

const (
	// JobStateWaiting indicates a job is queued and not yet claimed by an agent.
	JobStateWaiting JobState = "waiting"
	// JobStateRunning indicates a job has been claimed and is being processed.
	JobStateRunning JobState = "running"
	// JobStateCompleted indicates a job has finished. Terminal.
	JobStateCompleted JobState = "completed"
	// JobStateCancelled indicates a job was cancelled before or during execution. Terminal.
	JobStateCancelled JobState = "cancelled"
)

// StateKey is the reserved result-namespace field holding the lifecycle state.
// Generic result merges must not write it directly; it is only changed
// through guarded state transitions.
const StateKey = "job_state"

var (
	// ErrNoJobsAvailable is returned when no waiting job matches the requested queues.
	ErrNoJobsAvailable = errors.New("no jobs available")
	// ErrInvalidJobID is returned when a supplied job id is not a well-formed UUID.
	ErrInvalidJobID = errors.New("invalid job_id specified")
	// ErrMissingQueue is returned when a submission carries no job_queue.
	ErrMissingQueue = errors.New("no job_queue specified")
)

// Valid returns true if the JobState is one of the known lifecycle states.
func (s JobState) Valid() bool {
	return s == JobStateWaiting || s == JobStateRunning ||
		s == JobStateCompleted || s == JobStateCancelled
}

// Terminal returns true for states that accept no further transition.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateCancelled
}

// NonTerminalStates returns the states a job may still transition out of.
func NonTerminalStates() []JobState {
	return []JobState{JobStateWaiting, JobStateRunning}
}

// Job represents a queued unit of work with its opaque producer payload and
// lifecycle metadata.
type Job struct {
	ID        string          `json:"job_id"      db:"job_id"`
	Queue     string          `json:"job_queue"   db:"queue"`
	Data      json.RawMessage `json:"job_data"    db:"job_data"`
	State     JobState        `json:"job_state"   db:"job_state"`
	Result    json.RawMessage `json:"result_data" db:"result_data"`
	Seq       int64           `json:"-"           db:"seq"`
	CreatedAt time.Time       `json:"created_at"  db:"created_at"`
}

// ClaimedJob is the flattened view handed to an agent: the producer payload
// with the job id folded back in.
type ClaimedJob map[string]any

// SubmitRequest carries a producer submission: the opaque payload plus the
// fields the broker itself interprets.
type SubmitRequest struct {
	// Payload is the full producer-supplied document, including job_queue
	// and any optional job_id / reserve_data fields.
	Payload map[string]any
}

// Queue extracts the target queue name, or "" when absent or not a string.
func (r *SubmitRequest) Queue() string {
	q, _ := r.Payload["job_queue"].(string)
	return q
}

// SuppliedID returns a producer-supplied job id, or "" for a fresh submission.
func (r *SubmitRequest) SuppliedID() string {
	id, _ := r.Payload["job_id"].(string)
	return id
}

// HasReservation reports whether the payload carries a reservation request.
func (r *SubmitRequest) HasReservation() bool {
	_, ok := r.Payload["reserve_data"]
	return ok
}

// Validate checks the submission invariants: a non-empty queue name and,
// when a job id is supplied for resubmission, a well-formed UUID.
func (r *SubmitRequest) Validate() error {
	if r.Queue() == "" {
		return ErrMissingQueue
	}
	if id := r.SuppliedID(); id != "" && !ValidUUID(id) {
		return ErrInvalidJobID
	}
	return nil
}

// ValidUUID reports whether s parses as a UUID.
func ValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// NewJobID generates a fresh version-4 UUID job id.
func NewJobID() string {
	return uuid.NewString()
}
