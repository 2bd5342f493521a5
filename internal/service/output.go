package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/testfarm/broker/internal/core"
	"github.com/testfarm/broker/internal/domain/model"
)

// OutputStreamOptions groups dependencies for OutputStream.
type OutputStreamOptions struct {
	Repo   core.OutputRepository // Required: output buffer repository
	Logger *slog.Logger          // Optional: structured logger
}

// OutputStream relays live job output from the executing agent to polling
// producers through a per-job buffer.
type OutputStream struct {
	repo   core.OutputRepository
	logger *slog.Logger
}

// NewOutputStream constructs a new OutputStream.
func NewOutputStream(opts OutputStreamOptions) (*OutputStream, error) {
	if opts.Repo == nil {
		return nil, errors.New("OutputRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "output_stream")
	}

	return &OutputStream{repo: opts.Repo, logger: logger}, nil
}

// MustNewOutputStream constructs a new OutputStream and panics on error.
func MustNewOutputStream(opts OutputStreamOptions) *OutputStream {
	svc, err := NewOutputStream(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create OutputStream: %v", err))
	}
	return svc
}

// Append buffers one chunk of output text for the job.
func (s *OutputStream) Append(ctx context.Context, id, chunk string) error {
	if !model.ValidUUID(id) {
		return model.ErrInvalidJobID
	}
	return s.repo.Append(ctx, id, chunk)
}

// Drain destructively reads everything buffered so far. Each chunk is
// delivered to exactly one caller.
func (s *OutputStream) Drain(ctx context.Context, id string) (string, error) {
	if !model.ValidUUID(id) {
		return "", model.ErrInvalidJobID
	}
	return s.repo.Drain(ctx, id)
}
