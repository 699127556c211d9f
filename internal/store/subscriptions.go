package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fermentation-backend/internal/model"
)

// PutSubscription creates or replaces a subscription and its batch set.
func (s *gormStore) PutSubscription(ctx context.Context, sub *model.PushSubscription, batchIDs []uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(sub).Error; err != nil {
			return err
		}

		var batches []*model.Batch
		if len(batchIDs) > 0 {
			if err := tx.Where("id IN ?", batchIDs).Find(&batches).Error; err != nil {
				return err
			}
		}

		return tx.Model(sub).Association("Batches").Replace(batches)
	})
}

// GetSubscription returns the subscription with its batches, or gorm.ErrRecordNotFound.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).Preload("Batches").First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := model.PushSubscription{Endpoint: endpoint}
		if err := tx.Model(&sub).Association("Batches").Clear(); err != nil {
			return err
		}
		return tx.Delete(&sub).Error
	})
}

// SubscriptionsForBatch returns every subscription following the batch.
func (s *gormStore) SubscriptionsForBatch(ctx context.Context, batchID uuid.UUID) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_batch_mapping sbm ON sbm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("sbm.batch_id = ?", batchID).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for batch %s: %w", batchID, err)
	}
	return subs, nil
}
