package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Farm is the root of the ownership chain Farm -> Tank -> Batch.
type Farm struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Location  string    `gorm:"size:256" json:"location"`
	FarmerID  uuid.UUID `gorm:"type:uuid;index;not null" json:"farmerId"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`

	// Associations
	Tanks []Tank `gorm:"foreignKey:FarmID" json:"-"`
}

func (f *Farm) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
