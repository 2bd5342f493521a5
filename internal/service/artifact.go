package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/testfarm/broker/internal/core"
	"github.com/testfarm/broker/internal/domain/model"
)

// ArtifactStoreOptions groups dependencies for ArtifactStore.
type ArtifactStoreOptions struct {
	Repo   core.ArtifactRepository // Required: artifact repository
	Logger *slog.Logger            // Optional: structured logger
}

// ArtifactStore accepts artifact bundles from agents and serves the latest
// version back to producers.
type ArtifactStore struct {
	repo   core.ArtifactRepository
	logger *slog.Logger
}

// NewArtifactStore constructs a new ArtifactStore.
func NewArtifactStore(opts ArtifactStoreOptions) (*ArtifactStore, error) {
	if opts.Repo == nil {
		return nil, errors.New("ArtifactRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "artifact_store")
	}

	return &ArtifactStore{repo: opts.Repo, logger: logger}, nil
}

// MustNewArtifactStore constructs a new ArtifactStore and panics on error.
func MustNewArtifactStore(opts ArtifactStoreOptions) *ArtifactStore {
	svc, err := NewArtifactStore(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create ArtifactStore: %v", err))
	}
	return svc
}

// Put stores the stream as a new artifact version for the job.
func (s *ArtifactStore) Put(ctx context.Context, id string, r io.Reader) error {
	if !model.ValidUUID(id) {
		return model.ErrInvalidJobID
	}
	if err := s.repo.Put(ctx, id, r); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "artifact uploaded", "job_id", id)
	}
	return nil
}

// Get streams the latest artifact version for the job to w.
func (s *ArtifactStore) Get(ctx context.Context, id string, w io.Writer) error {
	if !model.ValidUUID(id) {
		return model.ErrInvalidJobID
	}
	return s.repo.Get(ctx, id, w)
}
