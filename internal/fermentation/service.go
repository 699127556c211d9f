package fermentation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"fermentation-backend/internal/model"
	"fermentation-backend/internal/poller"
)

// BatchTransitioner persists lifecycle changes of a batch.
type BatchTransitioner interface {
	StartFermentation(ctx context.Context, id uuid.UUID, now time.Time) (*model.Batch, error)
	StopFermentation(ctx context.Context, id uuid.UUID, now time.Time) (*model.Batch, error)
}

// StartResult is returned by Start. Warning is set when the batch was started
// but the immediate poll did not complete; the transition itself stands.
type StartResult struct {
	Batch   *model.Batch       `json:"batch"`
	Poll    poller.PollOutcome `json:"poll"`
	Warning string             `json:"warning,omitempty"`
}

// Service starts and stops fermentation batches.
type Service struct {
	store  BatchTransitioner
	poller poller.BatchPoller
	now    func() time.Time
}

// NewService creates a lifecycle service.
func NewService(store BatchTransitioner, p poller.BatchPoller) *Service {
	return &Service{
		store:  store,
		poller: p,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Start activates the batch, resets its start date and runs one poll before
// returning, so the first readings are available right away. Returns
// store.ErrBatchNotFound for an unknown id.
func (s *Service) Start(ctx context.Context, batchID uuid.UUID) (*StartResult, error) {
	batch, err := s.store.StartFermentation(ctx, batchID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to start fermentation: %w", err)
	}
	logger := log.WithFields(log.Fields{"batch_id": batchID, "batch_code": batch.BatchCode})
	logger.Info("fermentation started")

	res := &StartResult{Batch: batch}
	res.Poll = s.poller.PollBatch(ctx, batchID)
	switch res.Poll.Status {
	case poller.StatusFetchFailed, poller.StatusFailed:
		res.Warning = fmt.Sprintf("fermentation started but initial poll failed: %s", res.Poll.Error)
		logger.WithField("outcome", res.Poll.Status).Warn("initial poll after start did not complete")
	case poller.StatusSkipped:
		res.Warning = fmt.Sprintf("fermentation started but initial poll was skipped: %s", res.Poll.Reason)
	}
	return res, nil
}

// Stop deactivates the batch and stamps its end date. Polling stops from the
// next scheduler tick on.
func (s *Service) Stop(ctx context.Context, batchID uuid.UUID) (*model.Batch, error) {
	batch, err := s.store.StopFermentation(ctx, batchID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to stop fermentation: %w", err)
	}
	log.WithFields(log.Fields{"batch_id": batchID, "batch_code": batch.BatchCode}).Info("fermentation stopped")
	return batch, nil
}
