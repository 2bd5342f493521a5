package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/testfarm/broker/internal/domain/model"
)

// AgentRepo persists the agent registry: the state each agent reports about
// itself, plus a rolling window of its recent log lines.
type AgentRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewAgentRepo creates a new AgentRepo with the given database connection and configuration.
func NewAgentRepo(db *sql.DB, cfg RepoConfig) *AgentRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &AgentRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

// Upsert stores the agent's self-reported record. Log lines are appended to
// the stored window and trimmed to the most recent model.AgentLogLines.
func (r *AgentRepo) Upsert(ctx context.Context, name string, update model.AgentUpdate) error {
	queues, err := json.Marshal(update.Queues)
	if err != nil {
		return fmt.Errorf("marshal agent queues: %w", err)
	}
	logLines, err := json.Marshal(update.Log)
	if err != nil {
		return fmt.Errorf("marshal agent log: %w", err)
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO agents (name, state, queues, location, job_id, log, updated_at)
		VALUES ($1, $2, $3::jsonb, $4, $5, $6::jsonb, $7)
		ON CONFLICT (name) DO UPDATE SET
			state      = EXCLUDED.state,
			queues     = EXCLUDED.queues,
			location   = EXCLUDED.location,
			job_id     = EXCLUDED.job_id,
			updated_at = EXCLUDED.updated_at,
			log = (
				SELECT COALESCE(jsonb_agg(elem), '[]'::jsonb)
				FROM (
					SELECT elem
					FROM jsonb_array_elements(agents.log || EXCLUDED.log) WITH ORDINALITY AS t(elem, ord)
					ORDER BY ord
					OFFSET GREATEST(jsonb_array_length(agents.log || EXCLUDED.log) - $8, 0)
				) tail
			)
	`, name, update.State, queues, update.Location, update.JobID, logLines,
		r.timeProvider.Now().UTC(), model.AgentLogLines)
	if err != nil {
		return fmt.Errorf("upsert agent %s: %w", name, err)
	}
	return nil
}

// List returns all registered agents without their log windows.
func (r *AgentRepo) List(ctx context.Context) ([]model.Agent, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT name, state, queues, location, job_id, updated_at
		FROM agents
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []model.Agent
	for rows.Next() {
		var (
			agent     model.Agent
			rawQueues []byte
		)
		if scanErr := rows.Scan(
			&agent.Name,
			&agent.State,
			&rawQueues,
			&agent.Location,
			&agent.JobID,
			&agent.UpdatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("scan agent: %w", scanErr)
		}
		if len(rawQueues) > 0 {
			if unmarshalErr := json.Unmarshal(rawQueues, &agent.Queues); unmarshalErr != nil {
				return nil, fmt.Errorf("decode agent queues: %w", unmarshalErr)
			}
		}
		agents = append(agents, agent)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate agents: %w", rowsErr)
	}
	return agents, nil
}
