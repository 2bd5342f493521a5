package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/testfarm/broker/internal/core"
	"github.com/testfarm/broker/internal/data"
	"github.com/testfarm/broker/internal/domain/model"
	"github.com/testfarm/broker/internal/observability/metrics"
	"github.com/testfarm/broker/internal/observability/statsd"
)

// DispatcherOptions groups dependencies for Dispatcher.
type DispatcherOptions struct {
	Repo   core.JobRepository // Required: job repository
	Logger *slog.Logger       // Optional: structured logger
	Sink   statsd.Sink        // Optional: metric sink
}

// Dispatcher provides the job intake and hand-off logic: accepting
// submissions, handing waiting jobs to polling agents, reporting queue
// positions and cancelling jobs that have not started.
type Dispatcher struct {
	repo   core.JobRepository
	logger *slog.Logger
	sink   statsd.Sink
}

// NewDispatcher constructs a new Dispatcher.
func NewDispatcher(opts DispatcherOptions) (*Dispatcher, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "dispatcher")
	}

	return &Dispatcher{
		repo:   opts.Repo,
		logger: logger,
		sink:   opts.Sink,
	}, nil
}

// MustNewDispatcher constructs a new Dispatcher and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewDispatcher(opts DispatcherOptions) *Dispatcher {
	svc, err := NewDispatcher(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create Dispatcher: %v", err))
	}
	return svc
}

// Submit validates and enqueues a submission, returning the job id. A
// producer-supplied id is honoured for resubmission; otherwise a fresh UUID
// is assigned. The stored payload always carries the final id.
func (s *Dispatcher) Submit(ctx context.Context, req model.SubmitRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	id := req.SuppliedID()
	if id == "" {
		id = model.NewJobID()
	}
	req.Payload["job_id"] = id

	doc, err := json.Marshal(req.Payload)
	if err != nil {
		return "", fmt.Errorf("marshal job payload: %w", err)
	}

	if insertErr := s.repo.Insert(ctx, &model.Job{
		ID:    id,
		Queue: req.Queue(),
		Data:  doc,
	}); insertErr != nil {
		metrics.EmitJobLifecycle(s.sink, metrics.JobMetric{
			Queue:      req.Queue(),
			Transition: "submit",
			Result:     metrics.ResultError,
			Err:        insertErr,
		})
		return "", insertErr
	}

	metrics.EmitJobLifecycle(s.sink, metrics.JobMetric{
		Queue:      req.Queue(),
		Transition: "submit",
		Result:     metrics.ResultSuccess,
	})
	if req.HasReservation() && s.sink != nil {
		s.sink.Count("job.reservation", 1, map[string]string{"queue": req.Queue()})
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job submitted",
			"job_id", id,
			"queue", req.Queue(),
			"reservation", req.HasReservation(),
		)
	}
	return id, nil
}

// GetJob returns the stored payload of a job.
func (s *Dispatcher) GetJob(ctx context.Context, id string) (model.ClaimedJob, error) {
	if !model.ValidUUID(id) {
		return nil, model.ErrInvalidJobID
	}

	job, err := s.repo.GetData(ctx, id)
	if errors.Is(err, data.ErrJobNotFound) {
		return nil, ErrJobNotFound
	}
	return job, err
}

// Claim hands one waiting job from the given queues to the caller, FIFO per
// queue, transitioning it to running. Returns model.ErrNoJobsAvailable when
// every queue is empty.
func (s *Dispatcher) Claim(ctx context.Context, queues []string) (model.ClaimedJob, error) {
	if len(queues) == 0 {
		return nil, model.ErrMissingQueue
	}
	for _, q := range queues {
		if q == "" {
			return nil, model.ErrMissingQueue
		}
	}

	job, err := s.repo.Claim(ctx, queues)
	if err != nil {
		if !errors.Is(err, model.ErrNoJobsAvailable) {
			metrics.EmitJobLifecycle(s.sink, metrics.JobMetric{
				Transition: "claim",
				Result:     metrics.ResultError,
				Err:        err,
			})
		}
		return nil, err
	}

	queue, _ := job["job_queue"].(string)
	metrics.EmitJobLifecycle(s.sink, metrics.JobMetric{
		Queue:      queue,
		Transition: "claim",
		Result:     metrics.ResultSuccess,
	})
	return job, nil
}

// Position returns the zero-based position of a waiting job within its queue.
func (s *Dispatcher) Position(ctx context.Context, id string) (int, error) {
	if !model.ValidUUID(id) {
		return 0, model.ErrInvalidJobID
	}
	return s.repo.Position(ctx, id)
}

// Cancel transitions a job to cancelled unless it already reached a terminal
// state. Cancelling a running job only marks the record; the agent observes
// the state on its next poll.
func (s *Dispatcher) Cancel(ctx context.Context, id string) error {
	if !model.ValidUUID(id) {
		return model.ErrInvalidJobID
	}

	modified, err := s.repo.UpdateState(ctx, id, model.NonTerminalStates(), model.JobStateCancelled)
	if err != nil {
		return err
	}
	if modified {
		if s.logger != nil {
			s.logger.InfoContext(ctx, "job cancelled", "job_id", id)
		}
		metrics.EmitJobLifecycle(s.sink, metrics.JobMetric{
			Transition: "cancel",
			Result:     metrics.ResultSuccess,
		})
		return nil
	}

	// Nothing changed: either the job is unknown or already terminal.
	if _, getErr := s.repo.GetData(ctx, id); getErr != nil {
		if errors.Is(getErr, data.ErrJobNotFound) {
			return ErrJobNotFound
		}
		return getErr
	}
	return ErrJobNotCancellable
}
