package data

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// OutputRepo buffers streamed job output in Redis, one list per job.
//
// Drains are destructive: the fetch and the delete run in one MULTI/EXEC
// transaction, so a chunk is delivered exactly once and a concurrent append
// either lands before the drain (and is delivered) or after it (and stays
// buffered for the next poll).
type OutputRepo struct {
	client       redis.UniversalClient
	maxChunks    int64
	timeProvider TimeProvider
	logger       *slog.Logger
}

// OutputRepoConfig holds configuration options for the output buffer.
type OutputRepoConfig struct {
	// MaxChunks caps the number of buffered chunks per job; the oldest
	// chunks are dropped once the cap is reached.
	MaxChunks    int
	TimeProvider TimeProvider
	Logger       *slog.Logger
}

const defaultMaxChunks = 1000

// NewOutputRepo creates a new OutputRepo on the given Redis client.
func NewOutputRepo(client redis.UniversalClient, cfg OutputRepoConfig) *OutputRepo {
	maxChunks := int64(cfg.MaxChunks)
	if maxChunks <= 0 {
		maxChunks = defaultMaxChunks
	}

	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &OutputRepo{
		client:       client,
		maxChunks:    maxChunks,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

func outputKey(id string) string {
	return "output:" + id
}

func outputUpdatedKey(id string) string {
	return "output:" + id + ":updated_at"
}

// Append pushes one text chunk onto the job's buffer, creating it on first
// use, trimming to the configured cap and refreshing the updated-at marker.
func (r *OutputRepo) Append(ctx context.Context, id, chunk string) error {
	now := r.timeProvider.Now().UTC().Format(time.RFC3339Nano)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, outputKey(id), chunk)
		pipe.LTrim(ctx, outputKey(id), -r.maxChunks, -1)
		pipe.Set(ctx, outputUpdatedKey(id), now, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append output: %w", err)
	}
	return nil
}

// Drain atomically fetches and deletes the whole buffer, returning the
// chunks joined by newlines in append order, or ErrNoOutput when nothing
// is buffered.
func (r *OutputRepo) Drain(ctx context.Context, id string) (string, error) {
	var chunks *redis.StringSliceCmd

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		chunks = pipe.LRange(ctx, outputKey(id), 0, -1)
		pipe.Del(ctx, outputKey(id), outputUpdatedKey(id))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("drain output: %w", err)
	}

	lines, err := chunks.Result()
	if err != nil {
		return "", fmt.Errorf("drain output: %w", err)
	}
	if len(lines) == 0 {
		return "", ErrNoOutput
	}

	if r.logger != nil {
		r.logger.DebugContext(ctx, "output drained", "job_id", id, "chunks", len(lines))
	}
	return strings.Join(lines, "\n"), nil
}

// Health checks the Redis connection backing the output buffer.
func (r *OutputRepo) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
