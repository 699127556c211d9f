package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tank is a fermentation vessel. A tank without a Spindel feed URL is never polled.
type Tank struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FarmID        uuid.UUID `gorm:"type:uuid;index;not null" json:"farmId"`
	Name          string    `gorm:"size:128;not null" json:"name"`
	SpindelAPIURL *string   `gorm:"column:spindel_api_url;size:1024" json:"spindelApiUrl"`
	CreatedAt     time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"not null" json:"updatedAt"`

	// Associations
	Farm Farm `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (t *Tank) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// FeedURL returns the configured feed URL, or "" when none is set.
func (t *Tank) FeedURL() string {
	if t.SpindelAPIURL == nil {
		return ""
	}
	return *t.SpindelAPIURL
}
