// Package mocks provides mock implementations for testing the broker.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockJobRepository(ctrl)
//	mockRepo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
package mocks

// Generate mock for JobRepository interface from internal/core package.
// This creates MockJobRepository with methods for all JobRepository interface methods:
// Insert, GetData, Claim, MergeResult, GetResult, UpdateState, Position
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_mock.go github.com/testfarm/broker/internal/core JobRepository

// Generate mock for OutputRepository interface from internal/core package.
// This creates MockOutputRepository with methods for all OutputRepository interface methods:
// Append, Drain
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=output_repository_mock.go github.com/testfarm/broker/internal/core OutputRepository

// Generate mock for ArtifactRepository interface from internal/core package.
// This creates MockArtifactRepository with methods for all ArtifactRepository interface methods:
// Put, Get
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=artifact_repository_mock.go github.com/testfarm/broker/internal/core ArtifactRepository

// Generate mock for AgentRepository interface from internal/core package.
// This creates MockAgentRepository with methods for all AgentRepository interface methods:
// Upsert, List
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=agent_repository_mock.go github.com/testfarm/broker/internal/core AgentRepository

// Generate mock for QueueRepository interface from internal/core package.
// This creates MockQueueRepository with methods for all QueueRepository interface methods:
// Advertise, List, SetImages, Images
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=queue_repository_mock.go github.com/testfarm/broker/internal/core QueueRepository
