package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/testfarm/broker/internal/core"
	"github.com/testfarm/broker/internal/domain/model"
)

// RegistryOptions groups dependencies for Registry.
type RegistryOptions struct {
	Agents core.AgentRepository // Required: agent registry repository
	Queues core.QueueRepository // Required: queue metadata repository
	Logger *slog.Logger         // Optional: structured logger
}

// Registry tracks agents and the queue metadata they advertise.
type Registry struct {
	agents core.AgentRepository
	queues core.QueueRepository
	logger *slog.Logger
}

// NewRegistry constructs a new Registry.
func NewRegistry(opts RegistryOptions) (*Registry, error) {
	if opts.Agents == nil {
		return nil, errors.New("AgentRepository is required")
	}
	if opts.Queues == nil {
		return nil, errors.New("QueueRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "registry")
	}

	return &Registry{agents: opts.Agents, queues: opts.Queues, logger: logger}, nil
}

// MustNewRegistry constructs a new Registry and panics on error.
func MustNewRegistry(opts RegistryOptions) *Registry {
	svc, err := NewRegistry(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create Registry: %v", err))
	}
	return svc
}

// UpdateAgent records an agent's self-reported status.
func (s *Registry) UpdateAgent(ctx context.Context, name string, update model.AgentUpdate) error {
	if name == "" {
		return errors.New("agent name is required")
	}
	return s.agents.Upsert(ctx, name, update)
}

// ListAgents returns all known agents.
func (s *Registry) ListAgents(ctx context.Context) ([]model.Agent, error) {
	return s.agents.List(ctx)
}

// AdvertiseQueues records queue name -> description pairs for discovery.
func (s *Registry) AdvertiseQueues(ctx context.Context, queues map[string]string) error {
	return s.queues.Advertise(ctx, queues)
}

// ListQueues returns the advertised queues.
func (s *Registry) ListQueues(ctx context.Context) (map[string]string, error) {
	return s.queues.List(ctx)
}

// SetQueueImages records the known provisioning images for a queue.
func (s *Registry) SetQueueImages(ctx context.Context, queue string, images map[string]string) error {
	if queue == "" {
		return errors.New("queue name is required")
	}
	return s.queues.SetImages(ctx, queue, images)
}

// QueueImages returns the known provisioning images for a queue.
func (s *Registry) QueueImages(ctx context.Context, queue string) (map[string]string, error) {
	return s.queues.Images(ctx, queue)
}
