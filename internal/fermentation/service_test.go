package fermentation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"fermentation-backend/config"
	"fermentation-backend/internal/alerting"
	"fermentation-backend/internal/db/dbtest"
	"fermentation-backend/internal/model"
	"fermentation-backend/internal/poller"
	"fermentation-backend/internal/store"
)

func newTestService(t *testing.T) (*Service, store.Store, *gorm.DB) {
	t.Helper()
	gormDB := dbtest.NewTestDB(t)
	s := store.NewGormStore(gormDB)
	cfg := config.PollerConfig{FetchTimeout: time.Second, DedupCacheMinutes: 10}
	p := poller.NewPipeline(s, poller.NewFeedClient(cfg), alerting.NewEvaluator(alerting.DefaultThresholds()), nil, cfg)
	return NewService(s, p), s, gormDB
}

func feedServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"feeds": []map[string]any{{
			"entry_id":   1,
			"created_at": "2025-03-01T08:00:00Z",
			"field1":     "60",
			"field2":     "22",
			"field3":     "C",
			"field4":     "3.9",
			"field5":     "1.05",
			"field6":     "900",
			"field7":     "-60",
			"field8":     "FarmNet",
		}}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestService_Start_PollsImmediately(t *testing.T) {
	svc, s, gormDB := newTestService(t)
	feed := feedServer(t, http.StatusOK)
	batch := dbtest.SeedBatch(t, gormDB, feed.URL, false)
	fixed := time.Date(2025, 3, 2, 6, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	res, err := svc.Start(context.Background(), batch.ID)
	require.NoError(t, err)

	assert.True(t, res.Batch.IsActive)
	assert.True(t, fixed.Equal(res.Batch.StartDate))
	assert.Nil(t, res.Batch.EndDate)
	assert.Equal(t, poller.StatusCompleted, res.Poll.Status)
	assert.Equal(t, 1, res.Poll.Inserted)
	assert.Empty(t, res.Warning)

	readings, err := s.ListReadings(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Len(t, readings, 1)
}

func TestService_Start_FetchFailureIsWarning(t *testing.T) {
	svc, s, gormDB := newTestService(t)
	feed := feedServer(t, http.StatusInternalServerError)
	batch := dbtest.SeedBatch(t, gormDB, feed.URL, false)

	res, err := svc.Start(context.Background(), batch.ID)
	require.NoError(t, err)

	assert.True(t, res.Batch.IsActive, "transition stands even if the first poll fails")
	assert.Equal(t, poller.StatusFetchFailed, res.Poll.Status)
	assert.Contains(t, res.Warning, "initial poll failed")

	stored, err := s.GetBatchWithTank(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
}

func TestService_Start_WithoutFeedURL(t *testing.T) {
	svc, _, gormDB := newTestService(t)
	batch := dbtest.SeedBatch(t, gormDB, "", false)

	res, err := svc.Start(context.Background(), batch.ID)
	require.NoError(t, err)

	assert.True(t, res.Batch.IsActive)
	assert.Equal(t, poller.StatusSkipped, res.Poll.Status)
	assert.Contains(t, res.Warning, poller.ReasonNoFeedURL)
}

func TestService_StopThenRestart(t *testing.T) {
	svc, _, gormDB := newTestService(t)
	batch := dbtest.SeedBatch(t, gormDB, "", true)
	ctx := context.Background()

	stopAt := time.Now().UTC().Truncate(time.Second)
	svc.now = func() time.Time { return stopAt }
	stopped, err := svc.Stop(ctx, batch.ID)
	require.NoError(t, err)
	assert.False(t, stopped.IsActive)
	require.NotNil(t, stopped.EndDate)
	assert.True(t, stopAt.Equal(*stopped.EndDate))

	restartAt := stopAt.Add(time.Hour)
	svc.now = func() time.Time { return restartAt }
	res, err := svc.Start(ctx, batch.ID)
	require.NoError(t, err)
	assert.True(t, res.Batch.IsActive)
	assert.Nil(t, res.Batch.EndDate, "restart clears the previous end date")
	assert.True(t, restartAt.Equal(res.Batch.StartDate))
}

func TestService_UnknownBatch(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Start(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrBatchNotFound)

	_, err = svc.Stop(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrBatchNotFound)
}

// countingPoller makes sure Stop never triggers a poll.
type countingPoller struct{ calls int }

func (c *countingPoller) PollBatch(ctx context.Context, id uuid.UUID) poller.PollOutcome {
	c.calls++
	return poller.PollOutcome{BatchID: id, Status: poller.StatusCompleted}
}

type stubTransitioner struct{}

func (stubTransitioner) StartFermentation(ctx context.Context, id uuid.UUID, now time.Time) (*model.Batch, error) {
	return &model.Batch{ID: id, IsActive: true, StartDate: now}, nil
}

func (stubTransitioner) StopFermentation(ctx context.Context, id uuid.UUID, now time.Time) (*model.Batch, error) {
	return &model.Batch{ID: id, IsActive: false, EndDate: &now}, nil
}

func TestService_StopDoesNotPoll(t *testing.T) {
	p := &countingPoller{}
	svc := NewService(stubTransitioner{}, p)

	_, err := svc.Stop(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 0, p.calls)

	_, err = svc.Start(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)
}
