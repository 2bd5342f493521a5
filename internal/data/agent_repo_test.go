package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testfarm/broker/internal/domain/model"
	"github.com/testfarm/broker/internal/testutil"
)

func TestAgentRepo_Upsert(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewAgentRepo(db, RepoConfig{})
		ctx := context.Background()

		require.NoError(t, repo.Upsert(ctx, "agent-1", model.AgentUpdate{
			State:  "waiting",
			Queues: []string{"queue_a", "queue_b"},
			Log:    []string{"started"},
		}))

		// Second post replaces the fields and appends to the log.
		require.NoError(t, repo.Upsert(ctx, "agent-1", model.AgentUpdate{
			State:  "provision",
			Queues: []string{"queue_a"},
			JobID:  "some-job",
			Log:    []string{"provisioning"},
		}))

		agents, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, agents, 1)
		assert.Equal(t, "agent-1", agents[0].Name)
		assert.Equal(t, "provision", agents[0].State)
		assert.Equal(t, []string{"queue_a"}, agents[0].Queues)
		assert.Equal(t, "some-job", agents[0].JobID)

		var logLines []string
		require.NoError(t, db.QueryRowContext(ctx,
			`SELECT log FROM agents WHERE name = $1`, "agent-1",
		).Scan(jsonScanner{&logLines}))
		assert.Equal(t, []string{"started", "provisioning"}, logLines)
	})
}

func TestAgentRepo_Upsert_LogWindow(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewAgentRepo(db, RepoConfig{})
		ctx := context.Background()

		lines := make([]string, model.AgentLogLines+20)
		for i := range lines {
			lines[i] = fmt.Sprintf("line %d", i)
		}
		require.NoError(t, repo.Upsert(ctx, "chatty", model.AgentUpdate{State: "waiting", Log: lines[:60]}))
		require.NoError(t, repo.Upsert(ctx, "chatty", model.AgentUpdate{State: "waiting", Log: lines[60:]}))

		var stored []string
		require.NoError(t, db.QueryRowContext(ctx,
			`SELECT log FROM agents WHERE name = $1`, "chatty",
		).Scan(jsonScanner{&stored}))

		require.Len(t, stored, model.AgentLogLines)
		assert.Equal(t, lines[len(lines)-model.AgentLogLines], stored[0])
		assert.Equal(t, lines[len(lines)-1], stored[len(stored)-1])
	})
}

func TestAgentRepo_List_Empty(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewAgentRepo(db, RepoConfig{})

		agents, err := repo.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, agents)
	})
}

// jsonScanner scans a JSONB column into dst.
type jsonScanner struct {
	dst any
}

func (s jsonScanner) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s.dst)
	case string:
		return json.Unmarshal([]byte(v), s.dst)
	default:
		return fmt.Errorf("unexpected jsonb source type %T", src)
	}
}
