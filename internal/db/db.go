package db

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"restroom-status-backend/config"
	"restroom-status-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Println("Running database migrations...")
	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate runs the schema migrations. Split out so tests can run it against
// an in-memory database.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Facility{},
		&model.UsageRecord{},
		&model.Course{},
		&model.Student{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// SeedFacilities provisions the fixed facility set on first startup. The
// occupancy workflow never creates or deletes facilities, so an empty table
// means a fresh deployment; a non-empty table is left untouched.
func SeedFacilities(db *gorm.DB, names []string) error {
	var count int64
	if err := db.Model(&model.Facility{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count facilities: %w", err)
	}
	if count > 0 || len(names) == 0 {
		return nil
	}

	now := time.Now().UTC()
	facilities := make([]model.Facility, 0, len(names))
	for _, name := range names {
		facilities = append(facilities, model.Facility{
			ID:         uuid.NewString(),
			Name:       name,
			State:      model.StateFree,
			LastChange: now,
		})
	}

	log.Printf("Seeding %d facilities...", len(facilities))
	if err := db.Create(&facilities).Error; err != nil {
		return fmt.Errorf("failed to seed facilities: %w", err)
	}
	return nil
}
