package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testfarm/broker/internal/testutil"
)

func TestQueueRepo_AdvertiseAndList(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewQueueRepo(db, RepoConfig{})
		ctx := context.Background()

		require.NoError(t, repo.Advertise(ctx, map[string]string{
			"queue_a": "first queue",
			"queue_b": "second queue",
		}))

		// Re-advertising overwrites the description.
		require.NoError(t, repo.Advertise(ctx, map[string]string{
			"queue_a": "updated description",
		}))

		queues, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"queue_a": "updated description",
			"queue_b": "second queue",
		}, queues)
	})
}

func TestQueueRepo_Images(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewQueueRepo(db, RepoConfig{})
		ctx := context.Background()

		images := map[string]string{
			"noble": "url: http://cdimage.example.com/noble.img.xz",
			"jammy": "url: http://cdimage.example.com/jammy.img.xz",
		}
		require.NoError(t, repo.SetImages(ctx, "queue_a", images))

		got, err := repo.Images(ctx, "queue_a")
		require.NoError(t, err)
		assert.Equal(t, images, got)

		// Unknown queues read as empty, not as an error.
		got, err = repo.Images(ctx, "nope")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
