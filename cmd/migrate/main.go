package main

import (
	"fmt"
	"log"
	"os"

	"github.com/you/dispatchsvc/internal/config"
	"github.com/you/dispatchsvc/internal/infrastructure/auth"
	"github.com/you/dispatchsvc/internal/infrastructure/database"
)

// Creates or updates the schema, seeds the admin policies and prints row counts
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	dsn := cfg.DSN
	if envDSN := os.Getenv("MIGRATE_DATABASE_DSN"); envDSN != "" {
		dsn = envDSN
	}

	db, err := database.Open(dsn, nil)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get underlying sql.DB: %v", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	fmt.Println("database connection ok")

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run auto-migration: %v", err)
	}
	fmt.Println("schema migrated")

	if _, err := auth.NewCasbinService(db, cfg.CasbinModelPath); err != nil {
		log.Fatalf("Failed to seed policies: %v", err)
	}
	fmt.Println("admin policies seeded")

	for _, table := range []string{"users", "notifications", "otp_verifications", "sms_logs", "user_subscriptions", "subscription_payment_logs", "casbin_rule"} {
		var count int64
		if err := db.Table(table).Count(&count).Error; err != nil {
			log.Fatalf("Failed to query %s: %v", table, err)
		}
		fmt.Printf("  %-26s %d rows\n", table, count)
	}
}
