package testutil

import (
	"github.com/testfarm/broker/internal/domain/model"
)

// SubmitRequestBuilder provides a fluent interface for building job submission
// payloads for testing.
type SubmitRequestBuilder struct {
	payload map[string]any
}

// NewSubmitRequest creates a new SubmitRequestBuilder with sensible defaults.
func NewSubmitRequest() *SubmitRequestBuilder {
	return &SubmitRequestBuilder{
		payload: map[string]any{
			"job_queue":      "fake_queue",
			"provision_data": map[string]any{"distro": "noble"},
		},
	}
}

// WithQueue sets the target queue.
func (b *SubmitRequestBuilder) WithQueue(queue string) *SubmitRequestBuilder {
	b.payload["job_queue"] = queue
	return b
}

// WithJobID pins the job id, as a resubmission would.
func (b *SubmitRequestBuilder) WithJobID(id string) *SubmitRequestBuilder {
	b.payload["job_id"] = id
	return b
}

// WithField sets an arbitrary payload field.
func (b *SubmitRequestBuilder) WithField(key string, value any) *SubmitRequestBuilder {
	b.payload[key] = value
	return b
}

// WithoutQueue removes the queue field to build invalid submissions.
func (b *SubmitRequestBuilder) WithoutQueue() *SubmitRequestBuilder {
	delete(b.payload, "job_queue")
	return b
}

// Build returns the constructed submission request.
func (b *SubmitRequestBuilder) Build() model.SubmitRequest {
	payload := make(map[string]any, len(b.payload))
	for k, v := range b.payload {
		payload[k] = v
	}
	return model.SubmitRequest{Payload: payload}
}
