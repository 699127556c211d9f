package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Batch is one fermentation run tracked against a tank.
type Batch struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TankID        uuid.UUID  `gorm:"type:uuid;index;not null" json:"tankId"`
	BatchCode     string     `gorm:"size:64;not null" json:"batchCode"`
	CoffeeVariety string     `gorm:"size:128;not null" json:"coffeeVariety"`
	WeightKg      float64    `gorm:"not null;check:weight_kg > 0" json:"weightKg"`
	StartDate     time.Time  `gorm:"not null" json:"startDate"`
	EndDate       *time.Time `gorm:"check:end_date IS NULL OR end_date >= start_date" json:"endDate"`
	IsActive      bool       `gorm:"index;not null;default:false" json:"isActive"`
	CreatedAt     time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updatedAt"`

	// Associations
	Tank Tank `gorm:"constraint:OnDelete:RESTRICT" json:"tank,omitempty"`
}

func (b *Batch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
