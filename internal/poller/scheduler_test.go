package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticDirectory struct {
	ids []uuid.UUID
	err error
}

func (d staticDirectory) ListActiveBatchIDs(ctx context.Context) ([]uuid.UUID, error) {
	return d.ids, d.err
}

// fakePoller records calls and lets tests script per-batch behavior.
type fakePoller struct {
	delay  time.Duration
	behave func(id uuid.UUID) PollOutcome

	calls     atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
}

func (f *fakePoller) PollBatch(ctx context.Context, id uuid.UUID) PollOutcome {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.behave != nil {
		return f.behave(id)
	}
	return PollOutcome{BatchID: id, Status: StatusCompleted}
}

func newIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestScheduler_PollAllActiveBatches_IsolatesFailures(t *testing.T) {
	ids := newIDs(4)
	poller := &fakePoller{behave: func(id uuid.UUID) PollOutcome {
		switch id {
		case ids[1]:
			out := PollOutcome{BatchID: id}
			out.fail(StatusFetchFailed, ErrFetchFailed)
			return out
		case ids[2]:
			panic("boom")
		}
		return PollOutcome{BatchID: id, Status: StatusCompleted, Inserted: 1}
	}}
	s := NewScheduler(staticDirectory{ids: ids}, poller, time.Minute, 2)

	outcomes, err := s.PollAllActiveBatches(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 4)

	for i, out := range outcomes {
		assert.Equal(t, ids[i], out.BatchID, "outcomes keep directory order")
	}
	assert.Equal(t, StatusCompleted, outcomes[0].Status)
	assert.Equal(t, StatusFetchFailed, outcomes[1].Status)
	assert.Equal(t, StatusFailed, outcomes[2].Status)
	assert.Contains(t, outcomes[2].Error, "boom")
	assert.Equal(t, StatusCompleted, outcomes[3].Status)
	assert.Equal(t, int32(4), poller.calls.Load())
}

func TestScheduler_PollAllActiveBatches_BoundsConcurrency(t *testing.T) {
	poller := &fakePoller{delay: 20 * time.Millisecond}
	s := NewScheduler(staticDirectory{ids: newIDs(8)}, poller, time.Minute, 3)

	outcomes, err := s.PollAllActiveBatches(context.Background())
	require.NoError(t, err)

	assert.Len(t, outcomes, 8)
	assert.LessOrEqual(t, poller.maxActive.Load(), int32(3))
	assert.Greater(t, poller.maxActive.Load(), int32(1), "batches run in parallel")
}

func TestScheduler_PollAllActiveBatches_DirectoryError(t *testing.T) {
	poller := &fakePoller{}
	s := NewScheduler(staticDirectory{err: errors.New("connection refused")}, poller, time.Minute, 2)

	outcomes, err := s.PollAllActiveBatches(context.Background())

	assert.Error(t, err)
	assert.Nil(t, outcomes)
	assert.Equal(t, int32(0), poller.calls.Load())
}

func TestScheduler_PollAllActiveBatches_NoActiveBatches(t *testing.T) {
	s := NewScheduler(staticDirectory{}, &fakePoller{}, time.Minute, 2)

	outcomes, err := s.PollAllActiveBatches(context.Background())

	require.NoError(t, err)
	assert.Empty(t, outcomes)
}

func TestScheduler_StartStop(t *testing.T) {
	poller := &fakePoller{}
	s := NewScheduler(staticDirectory{ids: newIDs(1)}, poller, 10*time.Millisecond, 1)

	s.Start(context.Background())
	s.Start(context.Background())

	assert.Eventually(t, func() bool { return poller.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	s.Stop()
	after := poller.calls.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, after, poller.calls.Load(), "no ticks after Stop")

	s.Stop()
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	s := NewScheduler(staticDirectory{ids: newIDs(2)}, &fakePoller{}, time.Hour, 2)
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Run(ctx)
	}()

	cancel()
	wg.Wait()
}
