// Package dbtest provides in-memory databases and fixtures for tests.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fermentation-backend/internal/db"
	"fermentation-backend/internal/model"
)

// NewTestDB opens a private in-memory SQLite database with every table migrated.
// All access goes through a single connection so concurrent tests do not trip
// over SQLite's shared-cache table locks.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Migrate(gormDB); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return gormDB
}

// SeedBatch creates a farm, a tank pointing at feedURL (no URL when empty) and
// a batch on that tank.
func SeedBatch(t testing.TB, gormDB *gorm.DB, feedURL string, active bool) model.Batch {
	t.Helper()

	farm := model.Farm{Name: "Test Farm", FarmerID: uuid.New()}
	if err := gormDB.Create(&farm).Error; err != nil {
		t.Fatalf("failed to seed farm: %v", err)
	}

	tank := model.Tank{FarmID: farm.ID, Name: "Tank A"}
	if feedURL != "" {
		tank.SpindelAPIURL = &feedURL
	}
	if err := gormDB.Create(&tank).Error; err != nil {
		t.Fatalf("failed to seed tank: %v", err)
	}

	batch := model.Batch{
		TankID:        tank.ID,
		BatchCode:     "B-" + uuid.NewString()[:8],
		CoffeeVariety: "Arabica SL28",
		WeightKg:      120.5,
		StartDate:     time.Now().UTC().Add(-24 * time.Hour),
	}
	if err := gormDB.Create(&batch).Error; err != nil {
		t.Fatalf("failed to seed batch: %v", err)
	}
	// IsActive has a database default, so false must be written explicitly.
	if err := gormDB.Model(&batch).Update("is_active", active).Error; err != nil {
		t.Fatalf("failed to set batch state: %v", err)
	}
	batch.IsActive = active
	batch.Tank = tank
	return batch
}
