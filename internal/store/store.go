package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fermentation-backend/internal/model"
)

var (
	ErrBatchNotFound   = errors.New("batch not found")
	ErrReadingNotFound = errors.New("reading not found")
	ErrAlertNotFound   = errors.New("alert not found")
)

// Store defines the interface for all database operations.
type Store interface {
	ListActiveBatchIDs(ctx context.Context) ([]uuid.UUID, error)
	GetBatchWithTank(ctx context.Context, id uuid.UUID) (*model.Batch, error)
	StartFermentation(ctx context.Context, id uuid.UUID, now time.Time) (*model.Batch, error)
	StopFermentation(ctx context.Context, id uuid.UUID, now time.Time) (*model.Batch, error)

	ReadingExists(ctx context.Context, entryID int64) (bool, error)
	SaveReading(ctx context.Context, reading *model.SpindelReading, alert *model.Alert) (bool, error)
	ListReadings(ctx context.Context, batchID uuid.UUID) ([]model.SpindelReading, error)
	GetReading(ctx context.Context, id uuid.UUID) (*model.SpindelReading, error)
	ListAlerts(ctx context.Context, batchID uuid.UUID) ([]model.Alert, error)
	ListAllAlerts(ctx context.Context) ([]model.Alert, error)
	GetAlert(ctx context.Context, id uuid.UUID) (*model.Alert, error)

	PutSubscription(ctx context.Context, sub *model.PushSubscription, batchIDs []uuid.UUID) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForBatch(ctx context.Context, batchID uuid.UUID) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}
