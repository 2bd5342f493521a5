package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/testfarm/broker/internal/data/pgxutil"
	"github.com/testfarm/broker/internal/domain/model"
)

// RepoConfig holds configuration options for the data repositories.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRepo provides database operations for job records, including the
// atomic claim primitive.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo instance with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &JobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

// SQL used by Claim to atomically hand one waiting job to one caller.
// SKIP LOCKED makes concurrent claimers pass over rows another transaction
// is already claiming, so a job is never double-assigned.
const claimUpdateSQL = `
  WITH next AS (
    SELECT job_id FROM jobs
    WHERE job_state = 'waiting' AND queue = ANY($1)
    ORDER BY seq ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE jobs j
  SET job_state = 'running'
  FROM next
  WHERE j.job_id = next.job_id
  RETURNING j.job_id, j.job_data`

// Insert stores a new job record.
func (r *JobRepo) Insert(ctx context.Context, job *model.Job) error {
	if job == nil {
		return errors.New("job is required")
	}

	data := job.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}

	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.timeProvider.Now()
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO jobs (job_id, queue, job_data, job_state, result_data, created_at)
		VALUES ($1, $2, $3, $4, '{}'::jsonb, $5)
	`, job.ID, job.Queue, []byte(data), model.JobStateWaiting, createdAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrJobExists
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetData returns the producer payload of a job with the job id folded back in.
func (r *JobRepo) GetData(ctx context.Context, id string) (model.ClaimedJob, error) {
	var raw []byte
	err := r.DB.QueryRowContext(ctx, `
		SELECT job_data FROM jobs WHERE job_id = $1
	`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job data: %w", err)
	}

	return flattenJob(id, raw)
}

// Claim atomically transitions one waiting job on the given queues to
// running and returns its flattened payload. The read-modify-write happens
// in a single statement inside one transaction; under N concurrent callers
// racing for the same job exactly one succeeds.
func (r *JobRepo) Claim(ctx context.Context, queues []string) (model.ClaimedJob, error) {
	if len(queues) == 0 {
		return nil, errors.New("at least one queue is required")
	}

	var (
		id  string
		raw []byte
	)
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn: func(tx pgx.Tx) error {
			scanErr := tx.QueryRow(ctx, claimUpdateSQL, queues).Scan(&id, &raw)
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return model.ErrNoJobsAvailable
			}
			if scanErr != nil {
				return fmt.Errorf("claim job: %w", scanErr)
			}
			return nil
		},
	})
	if err != nil {
		if errors.Is(err, model.ErrNoJobsAvailable) {
			return nil, model.ErrNoJobsAvailable
		}
		return nil, err
	}

	if r.logger != nil {
		r.logger.DebugContext(ctx, "job claimed", "job_id", id)
	}

	return flattenJob(id, raw)
}

// MergeResult merges the given fields into the job's result namespace,
// last-writer-wins per field. The reserved state field never reaches the
// generic merge: it is routed through the guarded transition so an agent's
// result post cannot resurrect a cancelled or completed job. Posting to an
// unknown job reports ErrJobNotFound.
func (r *JobRepo) MergeResult(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	merged := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == model.StateKey {
			continue
		}
		merged[k] = v
	}

	if state, ok := fields[model.StateKey]; ok {
		if err := r.applyReportedState(ctx, id, state); err != nil {
			return err
		}
	}

	if len(merged) == 0 {
		return nil
	}

	doc, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshal result fields: %w", err)
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs SET result_data = result_data || $2::jsonb WHERE job_id = $1
	`, id, doc)
	if err != nil {
		return fmt.Errorf("merge result fields: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("merge result fields: %w", err)
	}
	if rows == 0 {
		return ErrJobNotFound
	}
	return nil
}

// applyReportedState handles a job_state key found in a result post. Legal
// target states are applied through the conditional update; anything else is
// dropped with a warning so a stray field cannot corrupt the state machine.
func (r *JobRepo) applyReportedState(ctx context.Context, id string, state any) error {
	s, ok := state.(string)
	target := model.JobState(s)
	if !ok || !target.Valid() {
		if r.logger != nil {
			r.logger.WarnContext(ctx, "ignoring invalid job_state in result post",
				"job_id", id,
				"job_state", state,
			)
		}
		return nil
	}

	modified, err := r.UpdateState(ctx, id, model.NonTerminalStates(), target)
	if err != nil {
		return err
	}
	if !modified {
		// Either the job does not exist or it is already terminal; the two
		// are reported differently.
		var exists bool
		if scanErr := r.DB.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM jobs WHERE job_id = $1)
		`, id).Scan(&exists); scanErr != nil {
			return fmt.Errorf("check job existence: %w", scanErr)
		}
		if !exists {
			return ErrJobNotFound
		}
		if r.logger != nil {
			r.logger.DebugContext(ctx, "job_state transition skipped, job terminal",
				"job_id", id,
				"job_state", target,
			)
		}
	}
	return nil
}

// GetResult returns the full result namespace with the state field folded in.
func (r *JobRepo) GetResult(ctx context.Context, id string) (map[string]any, error) {
	var (
		state model.JobState
		raw   []byte
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT job_state, result_data FROM jobs WHERE job_id = $1
	`, id).Scan(&state, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job result: %w", err)
	}

	result := map[string]any{}
	if len(raw) > 0 {
		if unmarshalErr := json.Unmarshal(raw, &result); unmarshalErr != nil {
			return nil, fmt.Errorf("decode result_data: %w", unmarshalErr)
		}
	}
	result[model.StateKey] = string(state)
	return result, nil
}

// UpdateState performs a conditional state transition. The write happens
// only when the current state is one of from; the return value reports
// whether a record was actually modified.
func (r *JobRepo) UpdateState(
	ctx context.Context,
	id string,
	from []model.JobState,
	to model.JobState,
) (bool, error) {
	if !to.Valid() {
		return false, fmt.Errorf("invalid job state: %s", to)
	}

	fromStates := make([]string, len(from))
	for i, s := range from {
		fromStates[i] = string(s)
	}

	var modified bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx, `
			UPDATE jobs SET job_state = $2
			WHERE job_id = $1 AND job_state = ANY($3)
		`, id, string(to), fromStates)
		if execErr != nil {
			return fmt.Errorf("update job state: %w", execErr)
		}
		modified = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	if modified && r.logger != nil {
		r.logger.DebugContext(ctx, "job state updated", "job_id", id, "job_state", to)
	}
	return modified, nil
}

// Position returns the zero-based index of the job among the waiting jobs
// of its queue in submission order. Jobs that are unknown, already claimed
// or terminal are reported as ErrJobNotWaiting.
func (r *JobRepo) Position(ctx context.Context, id string) (int, error) {
	var position int
	err := r.DB.QueryRowContext(ctx, `
		SELECT (
		  SELECT count(*) FROM jobs w
		  WHERE w.queue = j.queue
		    AND w.job_state = 'waiting'
		    AND w.seq < j.seq
		)
		FROM jobs j
		WHERE j.job_id = $1 AND j.job_state = 'waiting'
	`, id).Scan(&position)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrJobNotWaiting
	}
	if err != nil {
		return 0, fmt.Errorf("get queue position: %w", err)
	}
	return position, nil
}

// flattenJob merges a job's payload with its id the way agents expect it.
func flattenJob(id string, raw []byte) (model.ClaimedJob, error) {
	job := model.ClaimedJob{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &job); err != nil {
			return nil, fmt.Errorf("decode job_data: %w", err)
		}
	}
	job["job_id"] = id
	return job, nil
}
