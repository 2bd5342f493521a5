package data

import (
	"bytes"
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testfarm/broker/internal/domain/model"
	"github.com/testfarm/broker/internal/testutil"
)

func TestArtifactRepo_PutAndGet(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewArtifactRepo(db, RepoConfig{})
		ctx := context.Background()

		id := model.NewJobID()
		payload := []byte("tarball bytes")

		require.NoError(t, repo.Put(ctx, id, bytes.NewReader(payload)))

		var out bytes.Buffer
		require.NoError(t, repo.Get(ctx, id, &out))
		assert.Equal(t, payload, out.Bytes())
	})
}

func TestArtifactRepo_Get_Missing(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewArtifactRepo(db, RepoConfig{})

		var out bytes.Buffer
		err := repo.Get(context.Background(), model.NewJobID(), &out)
		require.ErrorIs(t, err, ErrNoArtifact)
	})
}

func TestArtifactRepo_MultiChunk(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewArtifactRepo(db, RepoConfig{})
		ctx := context.Background()

		id := model.NewJobID()

		// Spans three chunks with a ragged tail.
		payload := make([]byte, artifactChunkSize*2+123)
		for i := range payload {
			payload[i] = byte(i % 251)
		}

		require.NoError(t, repo.Put(ctx, id, bytes.NewReader(payload)))

		var out bytes.Buffer
		require.NoError(t, repo.Get(ctx, id, &out))
		assert.Equal(t, payload, out.Bytes())
	})
}

func TestArtifactRepo_LatestVersionWins(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := NewArtifactRepo(db, RepoConfig{TimeProvider: tp})
		ctx := context.Background()

		id := model.NewJobID()

		require.NoError(t, repo.Put(ctx, id, bytes.NewReader([]byte("version one"))))
		tp.AddTime(time.Second)
		require.NoError(t, repo.Put(ctx, id, bytes.NewReader([]byte("version two"))))

		var out bytes.Buffer
		require.NoError(t, repo.Get(ctx, id, &out))
		assert.Equal(t, "version two", out.String())
	})
}

func TestArtifactRepo_EmptyUpload(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewArtifactRepo(db, RepoConfig{})
		ctx := context.Background()

		id := model.NewJobID()
		require.NoError(t, repo.Put(ctx, id, bytes.NewReader(nil)))

		// The version exists even when the stream was empty.
		var out bytes.Buffer
		require.NoError(t, repo.Get(ctx, id, &out))
		assert.Zero(t, out.Len())
	})
}
