package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// BatchDirectory lists the batches eligible for polling.
type BatchDirectory interface {
	ListActiveBatchIDs(ctx context.Context) ([]uuid.UUID, error)
}

// BatchPoller runs the ingestion pipeline for a single batch.
type BatchPoller interface {
	PollBatch(ctx context.Context, batchID uuid.UUID) PollOutcome
}

// Scheduler polls every active batch on a fixed interval with bounded concurrency.
type Scheduler struct {
	directory   BatchDirectory
	poller      BatchPoller
	interval    time.Duration
	concurrency int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler. It does nothing until Start or Run is called.
func NewScheduler(directory BatchDirectory, poller BatchPoller, interval time.Duration, concurrency int) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scheduler{
		directory:   directory,
		poller:      poller,
		interval:    interval,
		concurrency: concurrency,
	}
}

// PollAllActiveBatches runs one tick: every active batch is polled, at most
// `concurrency` at a time. Outcomes follow the directory's order. Only a
// failure to list batches is returned as an error.
func (s *Scheduler) PollAllActiveBatches(ctx context.Context) ([]PollOutcome, error) {
	ids, err := s.directory.ListActiveBatchIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active batches: %w", err)
	}

	outcomes := make([]PollOutcome, len(ids))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			outcomes[i] = s.pollOne(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, nil
}

// pollOne keeps a panicking batch from taking the whole tick down.
func (s *Scheduler) pollOne(ctx context.Context, id uuid.UUID) (out PollOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = PollOutcome{BatchID: id, StartedAt: time.Now().UTC()}
			out.fail(StatusFailed, fmt.Errorf("panic while polling batch: %v", r))
			log.WithField("batch_id", id).Errorf("recovered from panic: %v", r)
		}
	}()
	return s.poller.PollBatch(ctx, id)
}

// Run polls immediately and then on every interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	log.WithField("interval", s.interval).Info("starting batch scheduler")

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("batch scheduler shutting down")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	outcomes, err := s.PollAllActiveBatches(ctx)
	if err != nil {
		log.WithError(err).Error("scheduler tick aborted")
		return
	}

	counts := make(map[OutcomeStatus]int)
	for _, o := range outcomes {
		counts[o.Status]++
	}
	log.WithFields(log.Fields{
		"batches":      len(outcomes),
		"completed":    counts[StatusCompleted],
		"skipped":      counts[StatusSkipped],
		"fetch_failed": counts[StatusFetchFailed],
		"failed":       counts[StatusFailed],
	}).Info("polled active batches")
}

// Start runs the scheduler in the background. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		s.Run(runCtx)
	}(s.done)
}

// Stop cancels the background loop and waits for the current tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
