package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testfarm/broker/internal/domain/model"
	"github.com/testfarm/broker/internal/testutil"
)

func insertTestJob(t *testing.T, repo *JobRepo, queue string) string {
	t.Helper()

	id := model.NewJobID()
	err := repo.Insert(context.Background(), &model.Job{
		ID:    id,
		Queue: queue,
		Data:  json.RawMessage(fmt.Sprintf(`{"job_queue":%q,"provision_data":{"distro":"noble"}}`, queue)),
	})
	require.NoError(t, err)
	return id
}

func TestJobRepo_Insert(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		ctx := context.Background()

		id := model.NewJobID()
		err := repo.Insert(ctx, &model.Job{
			ID:    id,
			Queue: "fake_queue",
			Data:  json.RawMessage(`{"job_queue":"fake_queue"}`),
		})
		require.NoError(t, err)

		// Same id again must be rejected.
		err = repo.Insert(ctx, &model.Job{
			ID:    id,
			Queue: "fake_queue",
			Data:  json.RawMessage(`{"job_queue":"fake_queue"}`),
		})
		require.ErrorIs(t, err, ErrJobExists)

		job, err := repo.GetData(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, job["job_id"])
		assert.Equal(t, "fake_queue", job["job_queue"])
	})
}

func TestJobRepo_GetData_NotFound(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})

		_, err := repo.GetData(context.Background(), model.NewJobID())
		require.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestJobRepo_Claim(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	t.Run("empty queues rejected", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})

			_, err := repo.Claim(context.Background(), nil)
			require.Error(t, err)
		})
	})

	t.Run("no matching jobs", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})
			insertTestJob(t, repo, "queue_a")

			_, err := repo.Claim(context.Background(), []string{"queue_b"})
			require.ErrorIs(t, err, model.ErrNoJobsAvailable)
		})
	})

	t.Run("fifo order within queue", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})
			ctx := context.Background()

			first := insertTestJob(t, repo, "queue_a")
			second := insertTestJob(t, repo, "queue_a")

			job, err := repo.Claim(ctx, []string{"queue_a", "queue_b"})
			require.NoError(t, err)
			assert.Equal(t, first, job["job_id"])
			assert.Equal(t, "queue_a", job["job_queue"])

			job, err = repo.Claim(ctx, []string{"queue_a"})
			require.NoError(t, err)
			assert.Equal(t, second, job["job_id"])

			_, err = repo.Claim(ctx, []string{"queue_a"})
			require.ErrorIs(t, err, model.ErrNoJobsAvailable)
		})
	})

	t.Run("claim moves job to running", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})
			ctx := context.Background()

			id := insertTestJob(t, repo, "queue_a")

			_, err := repo.Claim(ctx, []string{"queue_a"})
			require.NoError(t, err)

			result, err := repo.GetResult(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, string(model.JobStateRunning), result[model.StateKey])
		})
	})
}

func TestJobRepo_Claim_Concurrent(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		ctx := context.Background()

		const jobs = 5
		const claimers = 20

		for i := 0; i < jobs; i++ {
			insertTestJob(t, repo, "race_queue")
		}

		var (
			mu      sync.Mutex
			claimed = map[string]int{}
		)

		funcs := make([]func() error, claimers)
		for i := range funcs {
			funcs[i] = func() error {
				job, err := repo.Claim(ctx, []string{"race_queue"})
				if errors.Is(err, model.ErrNoJobsAvailable) {
					return nil
				}
				if err != nil {
					return err
				}
				mu.Lock()
				claimed[job["job_id"].(string)]++
				mu.Unlock()
				return nil
			}
		}

		runner := testutil.NewConcurrentTestRunner(t, db)
		runner.AssertNoErrors(runner.RunConcurrent(funcs...))

		// Every job handed out exactly once.
		assert.Len(t, claimed, jobs)
		for id, n := range claimed {
			assert.Equalf(t, 1, n, "job %s claimed %d times", id, n)
		}
	})
}

func TestJobRepo_MergeResult(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		ctx := context.Background()

		id := insertTestJob(t, repo, "queue_a")

		require.NoError(t, repo.MergeResult(ctx, id, map[string]any{
			"test_output": "provisioning",
			"exit_code":   float64(0),
		}))
		require.NoError(t, repo.MergeResult(ctx, id, map[string]any{
			"test_output": "testing",
		}))

		result, err := repo.GetResult(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "testing", result["test_output"])
		assert.Equal(t, float64(0), result["exit_code"])
		assert.Equal(t, string(model.JobStateWaiting), result[model.StateKey])
	})
}

func TestJobRepo_MergeResult_UnknownJob(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		ctx := context.Background()

		err := repo.MergeResult(ctx, model.NewJobID(), map[string]any{
			"exit_code": float64(1),
		})
		require.ErrorIs(t, err, ErrJobNotFound)

		// A state-only post to an unknown job is not silently dropped either.
		err = repo.MergeResult(ctx, model.NewJobID(), map[string]any{
			model.StateKey: "completed",
		})
		require.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestJobRepo_MergeResult_StateRouting(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	t.Run("reported state applies to live job", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})
			ctx := context.Background()

			id := insertTestJob(t, repo, "queue_a")
			_, err := repo.Claim(ctx, []string{"queue_a"})
			require.NoError(t, err)

			require.NoError(t, repo.MergeResult(ctx, id, map[string]any{
				model.StateKey: "completed",
				"exit_code":    float64(1),
			}))

			result, err := repo.GetResult(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, string(model.JobStateCompleted), result[model.StateKey])
			assert.Equal(t, float64(1), result["exit_code"])
		})
	})

	t.Run("reported state cannot resurrect terminal job", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})
			ctx := context.Background()

			id := insertTestJob(t, repo, "queue_a")
			modified, err := repo.UpdateState(ctx, id, model.NonTerminalStates(), model.JobStateCancelled)
			require.NoError(t, err)
			require.True(t, modified)

			require.NoError(t, repo.MergeResult(ctx, id, map[string]any{
				model.StateKey: "running",
			}))

			result, err := repo.GetResult(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, string(model.JobStateCancelled), result[model.StateKey])
		})
	})

	t.Run("invalid state value dropped", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})
			ctx := context.Background()

			id := insertTestJob(t, repo, "queue_a")
			require.NoError(t, repo.MergeResult(ctx, id, map[string]any{
				model.StateKey: "exploded",
				"detail":       "boom",
			}))

			result, err := repo.GetResult(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, string(model.JobStateWaiting), result[model.StateKey])
			assert.Equal(t, "boom", result["detail"])
		})
	})
}

func TestJobRepo_GetResult_NotFound(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})

		_, err := repo.GetResult(context.Background(), model.NewJobID())
		require.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestJobRepo_UpdateState(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		ctx := context.Background()

		id := insertTestJob(t, repo, "queue_a")

		modified, err := repo.UpdateState(ctx, id, model.NonTerminalStates(), model.JobStateCancelled)
		require.NoError(t, err)
		assert.True(t, modified)

		// Terminal state: no further transitions.
		modified, err = repo.UpdateState(ctx, id, model.NonTerminalStates(), model.JobStateCompleted)
		require.NoError(t, err)
		assert.False(t, modified)

		// Unknown job: not modified, no error.
		modified, err = repo.UpdateState(ctx, model.NewJobID(), model.NonTerminalStates(), model.JobStateCancelled)
		require.NoError(t, err)
		assert.False(t, modified)

		_, err = repo.UpdateState(ctx, id, model.NonTerminalStates(), model.JobState("bogus"))
		require.Error(t, err)
	})
}

func TestJobRepo_Position(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		ctx := context.Background()

		first := insertTestJob(t, repo, "queue_a")
		second := insertTestJob(t, repo, "queue_a")
		other := insertTestJob(t, repo, "queue_b")

		pos, err := repo.Position(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, 0, pos)

		pos, err = repo.Position(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, 1, pos)

		// Jobs on other queues do not count.
		pos, err = repo.Position(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, 0, pos)

		// Claiming the head advances everyone behind it.
		_, err = repo.Claim(ctx, []string{"queue_a"})
		require.NoError(t, err)

		pos, err = repo.Position(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, 0, pos)

		// Running and unknown jobs have no position.
		_, err = repo.Position(ctx, first)
		require.ErrorIs(t, err, ErrJobNotWaiting)
		_, err = repo.Position(ctx, model.NewJobID())
		require.ErrorIs(t, err, ErrJobNotWaiting)
	})
}
