package database

import (
	"fmt"

	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/you/dispatchsvc/internal/infrastructure/repositories"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open creates a new PostgreSQL connection
func Open(dsn string, log logger.Interface) (*gorm.DB, error) {
	if log == nil {
		log = logger.Default.LogMode(logger.Warn)
	}
	return gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: log})
}

// AutoMigrate creates the notification, OTP, delivery log and subscription tables
// plus the Casbin policy table used to guard admin routes
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(repositories.Models()...); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}

	// NewAdapterByDB creates casbin_rule when missing
	if _, err := gormadapter.NewAdapterByDB(db); err != nil {
		return fmt.Errorf("failed to initialize Casbin GORM adapter: %w", err)
	}

	return nil
}
