package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testfarm/broker/internal/data"
	"github.com/testfarm/broker/internal/domain/model"
	"github.com/testfarm/broker/internal/mocks"
	"github.com/testfarm/broker/internal/testutil"
	"go.uber.org/mock/gomock"
)

// recordingSink captures emitted metrics for assertions.
type recordingSink struct {
	mu     sync.Mutex
	counts []recordedMetric
}

type recordedMetric struct {
	name string
	tags map[string]string
}

func (s *recordingSink) Count(name string, _ int64, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = append(s.counts, recordedMetric{name: name, tags: tags})
}

func (s *recordingSink) Gauge(string, float64, map[string]string)        {}
func (s *recordingSink) Timing(string, time.Duration, map[string]string) {}

func (s *recordingSink) countsFor(transition string) []recordedMetric {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []recordedMetric
	for _, m := range s.counts {
		if m.tags["transition"] == transition {
			out = append(out, m)
		}
	}
	return out
}

func TestDispatcher_Submit(t *testing.T) {
	tests := []struct {
		name    string
		req     model.SubmitRequest
		wantErr error
	}{
		{
			name: "valid submission",
			req:  testutil.NewSubmitRequest().Build(),
		},
		{
			name: "resubmission keeps supplied id",
			req:  testutil.NewSubmitRequest().WithJobID("550e8400-e29b-41d4-a716-446655440000").Build(),
		},
		{
			name:    "missing queue",
			req:     testutil.NewSubmitRequest().WithoutQueue().Build(),
			wantErr: model.ErrMissingQueue,
		},
		{
			name:    "malformed job id",
			req:     testutil.NewSubmitRequest().WithJobID("not-a-uuid").Build(),
			wantErr: model.ErrInvalidJobID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := mocks.NewMockJobRepository(ctrl)
			sink := &recordingSink{}
			svc := MustNewDispatcher(DispatcherOptions{Repo: repo, Sink: sink})

			var inserted *model.Job
			if tt.wantErr == nil {
				repo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, job *model.Job) error {
						inserted = job
						return nil
					})
			}

			id, err := svc.Submit(context.Background(), tt.req)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, sink.countsFor("submit"))
				return
			}

			require.NoError(t, err)
			require.NotNil(t, inserted)
			assert.True(t, model.ValidUUID(id))
			assert.Equal(t, id, inserted.ID)
			assert.Equal(t, tt.req.Queue(), inserted.Queue)

			if supplied := tt.req.SuppliedID(); supplied != "" {
				assert.Equal(t, supplied, id)
			}

			counts := sink.countsFor("submit")
			require.Len(t, counts, 1)
			assert.Equal(t, "job.transition", counts[0].name)
			assert.Equal(t, tt.req.Queue(), counts[0].tags["queue"])
		})
	}
}

func TestDispatcher_Submit_ReservationCounter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	sink := &recordingSink{}
	svc := MustNewDispatcher(DispatcherOptions{Repo: repo, Sink: sink})

	repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)

	req := testutil.NewSubmitRequest().
		WithField("reserve_data", map[string]any{"timeout": 300}).
		Build()
	_, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)

	var reservations []recordedMetric
	for _, m := range sink.counts {
		if m.name == "job.reservation" {
			reservations = append(reservations, m)
		}
	}
	require.Len(t, reservations, 1)
	assert.Equal(t, req.Queue(), reservations[0].tags["queue"])
}

func TestDispatcher_Submit_DuplicateID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	svc := MustNewDispatcher(DispatcherOptions{Repo: repo})

	repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(data.ErrJobExists)

	_, err := svc.Submit(context.Background(),
		testutil.NewSubmitRequest().WithJobID("550e8400-e29b-41d4-a716-446655440000").Build())
	require.ErrorIs(t, err, data.ErrJobExists)
}

func TestDispatcher_GetJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	svc := MustNewDispatcher(DispatcherOptions{Repo: repo})
	ctx := context.Background()

	_, err := svc.GetJob(ctx, "nope")
	require.ErrorIs(t, err, model.ErrInvalidJobID)

	id := model.NewJobID()
	repo.EXPECT().GetData(ctx, id).Return(nil, data.ErrJobNotFound)
	_, err = svc.GetJob(ctx, id)
	require.ErrorIs(t, err, ErrJobNotFound)

	repo.EXPECT().GetData(ctx, id).Return(model.ClaimedJob{"job_id": id}, nil)
	job, err := svc.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, job["job_id"])
}

func TestDispatcher_Claim(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	sink := &recordingSink{}
	svc := MustNewDispatcher(DispatcherOptions{Repo: repo, Sink: sink})
	ctx := context.Background()

	_, err := svc.Claim(ctx, nil)
	require.ErrorIs(t, err, model.ErrMissingQueue)

	_, err = svc.Claim(ctx, []string{"queue_a", ""})
	require.ErrorIs(t, err, model.ErrMissingQueue)

	repo.EXPECT().Claim(ctx, []string{"queue_a"}).Return(nil, model.ErrNoJobsAvailable)
	_, err = svc.Claim(ctx, []string{"queue_a"})
	require.ErrorIs(t, err, model.ErrNoJobsAvailable)
	// An empty poll is not an error worth a metric.
	assert.Empty(t, sink.countsFor("claim"))

	id := model.NewJobID()
	repo.EXPECT().Claim(ctx, []string{"queue_a"}).
		Return(model.ClaimedJob{"job_id": id, "job_queue": "queue_a"}, nil)
	job, err := svc.Claim(ctx, []string{"queue_a"})
	require.NoError(t, err)
	assert.Equal(t, id, job["job_id"])

	counts := sink.countsFor("claim")
	require.Len(t, counts, 1)
	assert.Equal(t, "queue_a", counts[0].tags["queue"])
}

func TestDispatcher_Position(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	svc := MustNewDispatcher(DispatcherOptions{Repo: repo})
	ctx := context.Background()

	_, err := svc.Position(ctx, "bogus")
	require.ErrorIs(t, err, model.ErrInvalidJobID)

	id := model.NewJobID()
	repo.EXPECT().Position(ctx, id).Return(3, nil)
	pos, err := svc.Position(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, pos)
}

func TestDispatcher_Cancel(t *testing.T) {
	ctx := context.Background()
	id := model.NewJobID()

	t.Run("invalid id", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		svc := MustNewDispatcher(DispatcherOptions{Repo: mocks.NewMockJobRepository(ctrl)})

		require.ErrorIs(t, svc.Cancel(ctx, "bogus"), model.ErrInvalidJobID)
	})

	t.Run("waiting job cancelled", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mocks.NewMockJobRepository(ctrl)
		svc := MustNewDispatcher(DispatcherOptions{Repo: repo})

		repo.EXPECT().
			UpdateState(ctx, id, model.NonTerminalStates(), model.JobStateCancelled).
			Return(true, nil)

		require.NoError(t, svc.Cancel(ctx, id))
	})

	t.Run("unknown job", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mocks.NewMockJobRepository(ctrl)
		svc := MustNewDispatcher(DispatcherOptions{Repo: repo})

		repo.EXPECT().
			UpdateState(ctx, id, model.NonTerminalStates(), model.JobStateCancelled).
			Return(false, nil)
		repo.EXPECT().GetData(ctx, id).Return(nil, data.ErrJobNotFound)

		require.ErrorIs(t, svc.Cancel(ctx, id), ErrJobNotFound)
	})

	t.Run("already terminal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		repo := mocks.NewMockJobRepository(ctrl)
		svc := MustNewDispatcher(DispatcherOptions{Repo: repo})

		repo.EXPECT().
			UpdateState(ctx, id, model.NonTerminalStates(), model.JobStateCancelled).
			Return(false, nil)
		repo.EXPECT().GetData(ctx, id).Return(model.ClaimedJob{"job_id": id}, nil)

		require.ErrorIs(t, svc.Cancel(ctx, id), ErrJobNotCancellable)
	})
}
