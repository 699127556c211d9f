package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"fermentation-backend/config"
	"fermentation-backend/internal/alerting"
	"fermentation-backend/internal/model"
	"fermentation-backend/internal/parse"
	"fermentation-backend/internal/store"
)

// OutcomeStatus classifies how a single batch poll ended.
type OutcomeStatus string

const (
	StatusCompleted   OutcomeStatus = "completed"
	StatusSkipped     OutcomeStatus = "skipped"
	StatusFetchFailed OutcomeStatus = "fetch_failed"
	StatusFailed      OutcomeStatus = "failed"
)

// Skip reasons reported in PollOutcome.Reason.
const (
	ReasonBatchNotFound = "batch not found"
	ReasonBatchInactive = "batch is not active"
	ReasonNoFeedURL     = "tank has no feed url"
)

// DroppedEntry records a feed entry that could not be normalized.
type DroppedEntry struct {
	EntryID *int64 `json:"entryId,omitempty"`
	Reason  string `json:"reason"`
}

// PollOutcome is the result of one pipeline run for one batch. Skipped counts
// entries that were already stored, whether caught by the dedup gate or by the
// unique constraint.
type PollOutcome struct {
	BatchID   uuid.UUID      `json:"batchId"`
	Status    OutcomeStatus  `json:"status"`
	Reason    string         `json:"reason,omitempty"`
	Fetched   int            `json:"fetched"`
	Inserted  int            `json:"inserted"`
	Alerts    int            `json:"alerts"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
	Dropped   []DroppedEntry `json:"dropped,omitempty"`
	Error     string         `json:"error,omitempty"`
	StartedAt time.Time      `json:"startedAt"`
	Duration  time.Duration  `json:"duration"`

	Err error `json:"-"`
}

func (o *PollOutcome) fail(status OutcomeStatus, err error) {
	o.Status = status
	o.Err = err
	o.Error = err.Error()
}

// AlertNotifier receives the id of every alert the pipeline persists.
type AlertNotifier interface {
	Dispatch(alertID uuid.UUID)
}

// Pipeline ingests one batch's feed: fetch, normalize, dedup, persist, evaluate.
// Runs for the same batch are serialized; runs for different batches are independent.
type Pipeline struct {
	store        store.Store
	fetcher      FeedFetcher
	gate         *DedupGate
	evaluator    *alerting.Evaluator
	notifier     AlertNotifier
	fetchTimeout time.Duration
	locks        *batchLocks
}

// NewPipeline wires a pipeline. notifier may be nil.
func NewPipeline(s store.Store, fetcher FeedFetcher, evaluator *alerting.Evaluator, notifier AlertNotifier, cfg config.PollerConfig) *Pipeline {
	return &Pipeline{
		store:        s,
		fetcher:      fetcher,
		gate:         NewDedupGate(s, time.Duration(cfg.DedupCacheMinutes)*time.Minute),
		evaluator:    evaluator,
		notifier:     notifier,
		fetchTimeout: cfg.FetchTimeout,
		locks:        newBatchLocks(),
	}
}

// PollBatch runs the pipeline for one batch. It never returns an error: every
// failure is classified into the outcome. Cancelling ctx does not interrupt a
// run that has started; the fetch is bounded by the fetch timeout instead.
func (p *Pipeline) PollBatch(ctx context.Context, batchID uuid.UUID) PollOutcome {
	ctx = context.WithoutCancel(ctx)

	unlock := p.locks.lock(batchID)
	defer unlock()

	out := PollOutcome{BatchID: batchID, StartedAt: time.Now().UTC()}
	defer func() { out.Duration = time.Since(out.StartedAt) }()
	logger := log.WithField("batch_id", batchID)

	batch, err := p.store.GetBatchWithTank(ctx, batchID)
	if errors.Is(err, store.ErrBatchNotFound) {
		out.Status, out.Reason = StatusSkipped, ReasonBatchNotFound
		logger.Debug("skipping poll: batch not found")
		return out
	}
	if err != nil {
		out.fail(StatusFailed, err)
		logger.WithError(err).Error("failed to load batch")
		return out
	}
	if !batch.IsActive {
		out.Status, out.Reason = StatusSkipped, ReasonBatchInactive
		logger.Debug("skipping poll: batch inactive")
		return out
	}
	feedURL := batch.Tank.FeedURL()
	if feedURL == "" {
		out.Status, out.Reason = StatusSkipped, ReasonNoFeedURL
		logger.Debug("skipping poll: tank has no feed url")
		return out
	}

	entries, err := p.fetch(ctx, feedURL)
	if err != nil {
		out.fail(StatusFetchFailed, err)
		logger.WithError(err).Warn("feed fetch failed")
		return out
	}
	out.Fetched = len(entries)

	for _, entry := range entries {
		p.ingest(ctx, batch, entry, &out, logger)
	}

	out.Status = StatusCompleted
	logger.WithFields(log.Fields{
		"fetched":  out.Fetched,
		"inserted": out.Inserted,
		"alerts":   out.Alerts,
		"skipped":  out.Skipped,
		"dropped":  len(out.Dropped),
		"failed":   out.Failed,
	}).Info("batch poll completed")
	return out
}

func (p *Pipeline) fetch(ctx context.Context, feedURL string) ([]parse.FeedEntry, error) {
	if p.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.fetchTimeout)
		defer cancel()
	}
	entries, err := p.fetcher.Fetch(ctx, feedURL)
	if err != nil && !errors.Is(err, ErrFetchFailed) {
		err = fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	return entries, err
}

// ingest handles one feed entry. The reading insert and its alert form one
// unit; a failure here never undoes earlier entries of the same run.
func (p *Pipeline) ingest(ctx context.Context, batch *model.Batch, entry parse.FeedEntry, out *PollOutcome, logger *log.Entry) {
	reading, err := parse.ParseReading(entry, batch.ID)
	if err != nil {
		dropped := DroppedEntry{Reason: err.Error()}
		if id, idErr := entry.EntryID(); idErr == nil {
			dropped.EntryID = &id
		}
		out.Dropped = append(out.Dropped, dropped)
		logger.WithError(err).Warn("dropping malformed feed entry")
		return
	}
	entryLogger := logger.WithField("entry_id", reading.EntryID)

	decision, err := p.gate.Check(ctx, reading.EntryID)
	if err != nil {
		entryLogger.WithError(err).Warn("dedup lookup failed, relying on unique constraint")
	}
	if decision == Skip {
		out.Skipped++
		return
	}

	alert := p.evaluator.BuildAlert(&reading)
	inserted, err := p.store.SaveReading(ctx, &reading, alert)
	if err != nil {
		out.Failed++
		entryLogger.WithError(err).Error("failed to persist reading")
		return
	}
	p.gate.Remember(reading.EntryID)
	if !inserted {
		out.Skipped++
		entryLogger.Debug("entry already stored by a concurrent writer")
		return
	}

	out.Inserted++
	if alert == nil {
		return
	}
	out.Alerts++
	entryLogger.WithField("alert", alert.Message).Info("reading raised alert")
	if p.notifier != nil {
		p.notifier.Dispatch(alert.ID)
	}
}

// batchLocks hands out one mutex per batch id, dropping it when unused.
type batchLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*batchLock
}

type batchLock struct {
	mu   sync.Mutex
	refs int
}

func newBatchLocks() *batchLocks {
	return &batchLocks{locks: make(map[uuid.UUID]*batchLock)}
}

func (l *batchLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	bl, ok := l.locks[id]
	if !ok {
		bl = &batchLock{}
		l.locks[id] = bl
	}
	bl.refs++
	l.mu.Unlock()

	bl.mu.Lock()
	return func() {
		bl.mu.Unlock()
		l.mu.Lock()
		bl.refs--
		if bl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
