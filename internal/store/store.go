// Package store opens and migrates the relational store backing the
// server core, and wraps GORM's transaction helper for the
// multi-statement writes spec.md §5 requires to be atomic.
package store

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"duplexchat/internal/models"
)

// Open dials the configured driver and returns a ready *gorm.DB.
func Open(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	switch driver {
	case "mysql":
		return gorm.Open(mysql.Open(dsn), cfg)
	case "postgres":
		return gorm.Open(postgres.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}
}

// Migrate creates or updates every table named in models.All.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

// Transact runs fn inside a single transaction, committing on a nil
// return and rolling back otherwise. Every service write that touches
// more than one table goes through this.
func Transact(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.Transaction(fn)
}
