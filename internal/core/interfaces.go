// Package core defines the repository interfaces (ports) consumed by the
// service layer. Services depend on these contracts, not on concrete
// implementations.
package core

import (
	"context"
	"io"

	"github.com/testfarm/broker/internal/domain/model"
)

// JobRepository defines the interface for job record persistence, including
// the atomic claim primitive.
type JobRepository interface {
	// Insert stores a new job record. Fails with a duplicate-id error if the
	// job id already exists.
	Insert(ctx context.Context, job *model.Job) error

	// GetData returns the producer payload of a job with the job id folded
	// back in, or ErrJobNotFound.
	GetData(ctx context.Context, id string) (model.ClaimedJob, error)

	// Claim atomically selects one waiting job on any of the given queues,
	// transitions it to running and returns its flattened payload. Under
	// concurrent callers exactly one wins a given job; losers receive a
	// different job or model.ErrNoJobsAvailable. Selection is FIFO by
	// submission sequence.
	Claim(ctx context.Context, queues []string) (model.ClaimedJob, error)

	// MergeResult merges the given fields into the job's result namespace,
	// last-writer-wins per field. The reserved state field is routed through
	// a guarded transition instead of the blind merge.
	MergeResult(ctx context.Context, id string, fields map[string]any) error

	// GetResult returns the full result namespace, state field included,
	// or ErrJobNotFound.
	GetResult(ctx context.Context, id string) (map[string]any, error)

	// UpdateState performs a conditional transition: the write happens only
	// if the current state is one of from. Returns whether a record was
	// actually modified.
	UpdateState(ctx context.Context, id string, from []model.JobState, to model.JobState) (bool, error)

	// Position returns the zero-based index of the job among the waiting
	// jobs of its queue in submission order, or ErrJobNotWaiting when the
	// job is unknown, claimed or terminal.
	Position(ctx context.Context, id string) (int, error)
}

// OutputRepository buffers streamed job output between agent and poller.
type OutputRepository interface {
	// Append pushes one text chunk onto the job's buffer, creating it on
	// first use and refreshing its updated-at marker.
	Append(ctx context.Context, id, chunk string) error

	// Drain atomically fetches and deletes the whole buffer, returning the
	// chunks joined by newlines in append order, or ErrNoOutput.
	Drain(ctx context.Context, id string) (string, error)
}

// ArtifactRepository stores versioned artifact bundles per job.
type ArtifactRepository interface {
	// Put stores the stream as a new version of the job's artifact. Earlier
	// versions are kept; eviction is an external reaper's job.
	Put(ctx context.Context, id string, r io.Reader) error

	// Get streams the most recently uploaded version to w, or returns
	// ErrNoArtifact.
	Get(ctx context.Context, id string, w io.Writer) error
}

// AgentRepository is the registry of agents reporting their own state.
type AgentRepository interface {
	Upsert(ctx context.Context, name string, update model.AgentUpdate) error
	List(ctx context.Context) ([]model.Agent, error)
}

// QueueRepository holds advertised queue metadata.
type QueueRepository interface {
	// Advertise upserts queue name -> description pairs.
	Advertise(ctx context.Context, queues map[string]string) error
	List(ctx context.Context) (map[string]string, error)
	// SetImages replaces the known image map for a queue.
	SetImages(ctx context.Context, queue string, images map[string]string) error
	Images(ctx context.Context, queue string) (map[string]string, error)
}
