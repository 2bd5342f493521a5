package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/testfarm/broker/internal/core"
	"github.com/testfarm/broker/internal/data"
	"github.com/testfarm/broker/internal/domain/model"
)

// ResultStoreOptions groups dependencies for ResultStore.
type ResultStoreOptions struct {
	Repo   core.JobRepository // Required: job repository
	Logger *slog.Logger       // Optional: structured logger
}

// ResultStore manages the per-job result namespace agents post into and
// producers read back.
type ResultStore struct {
	repo   core.JobRepository
	logger *slog.Logger
}

// NewResultStore constructs a new ResultStore.
func NewResultStore(opts ResultStoreOptions) (*ResultStore, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "result_store")
	}

	return &ResultStore{repo: opts.Repo, logger: logger}, nil
}

// MustNewResultStore constructs a new ResultStore and panics on error.
func MustNewResultStore(opts ResultStoreOptions) *ResultStore {
	svc, err := NewResultStore(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create ResultStore: %v", err))
	}
	return svc
}

// Merge folds the posted fields into the job's result namespace. Reported
// lifecycle state rides along in the job_state field and is applied through
// the guarded transition, never the blind merge.
func (s *ResultStore) Merge(ctx context.Context, id string, fields map[string]any) error {
	if !model.ValidUUID(id) {
		return model.ErrInvalidJobID
	}

	if err := s.repo.MergeResult(ctx, id, fields); err != nil {
		if errors.Is(err, data.ErrJobNotFound) {
			return ErrJobNotFound
		}
		return err
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "result merged", "job_id", id, "fields", len(fields))
	}
	return nil
}

// Get returns the job's full result namespace, lifecycle state included.
func (s *ResultStore) Get(ctx context.Context, id string) (map[string]any, error) {
	if !model.ValidUUID(id) {
		return nil, model.ErrInvalidJobID
	}

	result, err := s.repo.GetResult(ctx, id)
	if errors.Is(err, data.ErrJobNotFound) {
		return nil, ErrJobNotFound
	}
	return result, err
}
