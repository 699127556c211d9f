package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fermentation-backend/internal/model"
)

// ReadingExists reports whether a reading with the given feed entry id is stored.
func (s *gormStore) ReadingExists(ctx context.Context, entryID int64) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&model.SpindelReading{}).
		Where("entry_id = ?", entryID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up entry %d: %w", entryID, err)
	}
	return count > 0, nil
}

// SaveReading inserts the reading and, when alert is non-nil, an alert pointing
// at it, in one transaction. The unique index on entry_id decides: if the entry
// is already stored nothing is written and inserted is false.
func (s *gormStore) SaveReading(ctx context.Context, reading *model.SpindelReading, alert *model.Alert) (bool, error) {
	inserted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entry_id"}},
			DoNothing: true,
		}).Create(reading)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return nil
			}
			return fmt.Errorf("failed to insert reading for entry %d: %w", reading.EntryID, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		inserted = true

		if alert == nil {
			return nil
		}
		alert.BatchID = reading.BatchID
		alert.ReadingID = &reading.ID
		if err := tx.Omit(clause.Associations).Create(alert).Error; err != nil {
			return fmt.Errorf("failed to insert alert for entry %d: %w", reading.EntryID, err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// ListReadings returns a batch's readings in source-time order.
func (s *gormStore) ListReadings(ctx context.Context, batchID uuid.UUID) ([]model.SpindelReading, error) {
	if err := s.ensureBatch(ctx, batchID); err != nil {
		return nil, err
	}
	var readings []model.SpindelReading
	if err := s.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at ASC").
		Find(&readings).Error; err != nil {
		return nil, fmt.Errorf("failed to list readings for batch %s: %w", batchID, err)
	}
	return readings, nil
}

func (s *gormStore) GetReading(ctx context.Context, id uuid.UUID) (*model.SpindelReading, error) {
	var reading model.SpindelReading
	err := s.db.WithContext(ctx).First(&reading, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReadingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reading %s: %w", id, err)
	}
	return &reading, nil
}

// ListAlerts returns a batch's alerts, newest first.
func (s *gormStore) ListAlerts(ctx context.Context, batchID uuid.UUID) ([]model.Alert, error) {
	if err := s.ensureBatch(ctx, batchID); err != nil {
		return nil, err
	}
	var alerts []model.Alert
	if err := s.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at DESC").
		Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to list alerts for batch %s: %w", batchID, err)
	}
	return alerts, nil
}

// ListAllAlerts returns every alert with its batch and reading, newest first.
func (s *gormStore) ListAllAlerts(ctx context.Context) ([]model.Alert, error) {
	var alerts []model.Alert
	if err := s.db.WithContext(ctx).
		Preload("Batch.Tank").
		Preload("Reading").
		Order("created_at DESC").
		Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

// GetAlert loads an alert together with its batch and reading.
func (s *gormStore) GetAlert(ctx context.Context, id uuid.UUID) (*model.Alert, error) {
	var alert model.Alert
	err := s.db.WithContext(ctx).
		Preload("Batch.Tank").
		Preload("Reading").
		First(&alert, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load alert %s: %w", id, err)
	}
	return &alert, nil
}
