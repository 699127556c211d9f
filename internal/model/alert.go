package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AlertLevel is the severity of an alert.
type AlertLevel string

const (
	AlertLevelInfo     AlertLevel = "INFO"
	AlertLevelWarning  AlertLevel = "WARNING"
	AlertLevelCritical AlertLevel = "CRITICAL"
)

// Alert is a warning derived from a reading that violated one or more thresholds.
type Alert struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BatchID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"batchId"`
	ReadingID *uuid.UUID `gorm:"type:uuid;index" json:"readingId"`
	Level     AlertLevel `gorm:"size:16;not null" json:"level"`
	Message   string     `gorm:"not null" json:"message"`
	CreatedAt time.Time  `gorm:"not null;index" json:"createdAt"`

	// Associations
	Batch   *Batch          `gorm:"constraint:OnDelete:RESTRICT" json:"batch,omitempty"`
	Reading *SpindelReading `gorm:"constraint:OnDelete:SET NULL" json:"reading,omitempty"`
}

func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
