package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fermentation-backend/internal/model"
)

// ListActiveBatchIDs returns the ids of every batch with is_active set, oldest first.
func (s *gormStore) ListActiveBatchIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := s.db.WithContext(ctx).
		Model(&model.Batch{}).
		Where("is_active = ?", true).
		Order("created_at").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list active batches: %w", err)
	}
	return ids, nil
}

// GetBatchWithTank loads a batch together with its tank.
func (s *gormStore) GetBatchWithTank(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	var batch model.Batch
	err := s.db.WithContext(ctx).Preload("Tank").First(&batch, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load batch %s: %w", id, err)
	}
	return &batch, nil
}

// StartFermentation marks the batch active and restarts its clock. A previous
// end date is cleared so the end >= start invariant holds after a restart.
func (s *gormStore) StartFermentation(ctx context.Context, id uuid.UUID, now time.Time) (*model.Batch, error) {
	return s.transition(ctx, id, map[string]any{
		"is_active":  true,
		"start_date": now,
		"end_date":   nil,
	})
}

// StopFermentation marks the batch inactive and stamps its end date.
func (s *gormStore) StopFermentation(ctx context.Context, id uuid.UUID, now time.Time) (*model.Batch, error) {
	return s.transition(ctx, id, map[string]any{
		"is_active": false,
		"end_date":  now,
	})
}

func (s *gormStore) transition(ctx context.Context, id uuid.UUID, fields map[string]any) (*model.Batch, error) {
	res := s.db.WithContext(ctx).Model(&model.Batch{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update batch %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrBatchNotFound
	}
	return s.GetBatchWithTank(ctx, id)
}

func (s *gormStore) ensureBatch(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Batch{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up batch %s: %w", id, err)
	}
	if count == 0 {
		return ErrBatchNotFound
	}
	return nil
}
