package model

import "time"

// AgentLogLines is the rolling window of agent log lines retained per agent.
const AgentLogLines = 100

// Agent is the registry record an agent reports about itself.
type Agent struct {
	Name      string    `json:"name"`
	State     string    `json:"state,omitempty"`
	Queues    []string  `json:"queues,omitempty"`
	Location  string    `json:"location,omitempty"`
	JobID     string    `json:"job_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AgentUpdate is the inbound payload for an agent registry post. Log lines
// are appended to the rolling window rather than replacing it.
type AgentUpdate struct {
	State    string   `json:"state,omitempty"`
	Queues   []string `json:"queues,omitempty"`
	Location string   `json:"location,omitempty"`
	JobID    string   `json:"job_id,omitempty"`
	Log      []string `json:"log,omitempty"`
}
