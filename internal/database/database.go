package database

import (
	"fmt"
	"log"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/terralima/portalgo/internal/config"
	"github.com/terralima/portalgo/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	embeddedDataPath = "./db_data"
	embeddedPort     = 5433
)

// DB wraps gorm.DB and includes a reference to an embedded process if active
type DB struct {
	*gorm.DB
	embedded *embeddedpostgres.EmbeddedPostgres
}

// Connect opens the portal database. With PG_HOST set it connects to an
// external PostgreSQL; otherwise it starts an embedded instance so the
// portal runs with zero local setup. Returns (nil, nil) when the database
// is disabled — callers fall back to in-memory stores.
func Connect(cfg config.DatabaseConfig) (*DB, error) {
	if cfg.Disabled {
		log.Println("Database disabled, using in-memory stores")
		return nil, nil
	}

	var embedded *embeddedpostgres.EmbeddedPostgres
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)

	if cfg.Host == "" {
		log.Println("PG_HOST not set, starting embedded PostgreSQL")
		embedded = embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
			Port(embeddedPort).
			Database(cfg.Database).
			Username(cfg.Username).
			Password("postgres").
			DataPath(embeddedDataPath).
			StartTimeout(45 * time.Second))
		if err := embedded.Start(); err != nil {
			return nil, fmt.Errorf("failed to start embedded postgres: %w", err)
		}
		dsn = fmt.Sprintf("host=localhost port=%d user=%s password=postgres dbname=%s sslmode=disable",
			embeddedPort, cfg.Username, cfg.Database)
	}

	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		if embedded != nil {
			_ = embedded.Stop()
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: gormDB, embedded: embedded}

	if err := db.AutoMigrate(
		&models.VerificationCode{},
		&models.WebhookEvent{},
	); err != nil {
		log.Printf("Migration warning: %v", err)
	}

	return db, nil
}

// Close closes the connection and stops the embedded instance if one is
// running
func (db *DB) Close() error {
	if db == nil {
		return nil
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if db.embedded != nil {
		return db.embedded.Stop()
	}
	return nil
}
