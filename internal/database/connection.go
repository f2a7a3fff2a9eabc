// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fabhub/fabhub-backend/internal/config"
	"github.com/fabhub/fabhub-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Enable UUID extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.User{},
		&models.MarketplaceItem{},
		&models.ItemFile{},
		&models.LicenseTier{},
		&models.Purchase{},
		&models.EscrowTransaction{},
		&models.LicenseGrant{},
		&models.DownloadAccess{},
		&models.Review{},
		&models.Project{},
		&models.Comment{},
		&models.CommentVote{},
		&models.AuditLog{},
		&models.Notification{},
		&models.PlatformAnalytics{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	// License tiers are a fixed catalog; seed them with the schema
	if err := SeedLicenseTiers(db); err != nil {
		return fmt.Errorf("failed to seed license tiers: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)",
		"CREATE INDEX IF NOT EXISTS idx_users_role_status ON users(role, status)",

		// Item indexes
		"CREATE INDEX IF NOT EXISTS idx_items_seller ON marketplace_items(seller_id)",
		"CREATE INDEX IF NOT EXISTS idx_items_category_status ON marketplace_items(category, status)",
		"CREATE INDEX IF NOT EXISTS idx_items_price ON marketplace_items(price_cents)",
		"CREATE INDEX IF NOT EXISTS idx_items_created_at ON marketplace_items(created_at DESC)",

		// Purchase indexes
		"CREATE INDEX IF NOT EXISTS idx_purchases_buyer ON purchases(buyer_id)",
		"CREATE INDEX IF NOT EXISTS idx_purchases_seller ON purchases(seller_id)",
		"CREATE INDEX IF NOT EXISTS idx_purchases_status ON purchases(status)",
		"CREATE INDEX IF NOT EXISTS idx_purchases_created_at ON purchases(created_at DESC)",

		// Escrow indexes
		"CREATE INDEX IF NOT EXISTS idx_escrows_status_release ON escrow_transactions(status, release_date)",

		// Download access indexes
		"CREATE INDEX IF NOT EXISTS idx_download_access_file_user ON download_accesses(file_id, user_id)",

		// Review indexes
		"CREATE INDEX IF NOT EXISTS idx_reviews_item ON reviews(item_id)",

		// Community indexes
		"CREATE INDEX IF NOT EXISTS idx_comments_project ON comments(project_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments(parent_id)",

		// Audit indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",

		// Full-text search indexes
		"CREATE INDEX IF NOT EXISTS idx_items_search ON marketplace_items USING GIN(to_tsvector('english', title || ' ' || description))",
		"CREATE INDEX IF NOT EXISTS idx_projects_search ON projects USING GIN(to_tsvector('english', title || ' ' || body))",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// SeedLicenseTiers inserts the four fixed license tiers if missing.
// Changing a tier requires a migration, not an API call.
func SeedLicenseTiers(db *gorm.DB) error {
	tiers := []models.LicenseTier{
		{
			Code:                "personal",
			Name:                "Personal",
			PriceMultiplier:     1.0,
			AttributionRequired: true,
		},
		{
			Code:            "commercial",
			Name:            "Commercial",
			PriceMultiplier: 2.5,
			CommercialUse:   true,
		},
		{
			Code:                  "extended",
			Name:                  "Extended",
			PriceMultiplier:       5.0,
			CommercialUse:         true,
			RedistributionAllowed: true,
			ResaleAllowed:         true,
		},
		{
			Code:                  "open_source",
			Name:                  "Open Source",
			PriceMultiplier:       0.0,
			CommercialUse:         true,
			RedistributionAllowed: true,
			AttributionRequired:   true,
		},
	}

	for _, tier := range tiers {
		var count int64
		db.Model(&models.LicenseTier{}).Where("code = ?", tier.Code).Count(&count)

		if count == 0 {
			if err := db.Create(&tier).Error; err != nil {
				return fmt.Errorf("failed to create license tier %s: %w", tier.Code, err)
			}
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	// Create default admin user
	var adminCount int64
	db.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&adminCount)

	if adminCount == 0 {
		admin := &models.User{
			Username: "admin",
			Email:    "admin@fabhub.dev",
			Role:     models.UserRoleAdmin,
			Status:   models.UserStatusActive,
			ProfileData: models.JSONB{
				"display_name": "Platform Administrator",
			},
		}

		if err := admin.SetPassword("admin123!@#"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("Default admin user created successfully")
	}

	log.Println("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
