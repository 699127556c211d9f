package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SpindelReading is one telemetry sample. EntryID is the upstream feed entry
// id and is unique across all batches; rows are never updated.
type SpindelReading struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EntryID     int64     `gorm:"uniqueIndex;not null" json:"entryId"`
	BatchID     uuid.UUID `gorm:"type:uuid;index;not null" json:"batchId"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime:false" json:"createdAt"` // Source time, not ingestion time
	AngleTilt   float64   `gorm:"not null" json:"angleTilt"`
	Temperature float64   `gorm:"not null" json:"temperature"`
	Unit        string    `gorm:"size:16;not null" json:"unit"`
	Battery     float64   `gorm:"not null" json:"battery"`
	Gravity     float64   `gorm:"not null" json:"gravity"`
	Interval    int       `gorm:"not null" json:"interval"`
	RSSI        int       `gorm:"column:rssi;not null" json:"rssi"`
	SSID        *string   `gorm:"column:ssid;size:64" json:"ssid"`
	IngestedAt  time.Time `gorm:"not null;autoCreateTime" json:"ingestedAt"`

	// Associations
	Batch Batch `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}

func (r *SpindelReading) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
