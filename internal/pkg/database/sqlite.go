package database

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenSQLite opens a pure-Go SQLite database. Used for local development
// and by package tests (dsn ":memory:" or "file::memory:?cache=shared").
// A single connection serialises writers, so transactions behave like the
// row locks taken on MySQL.
func OpenSQLite(dsn string, cfg *gorm.Config) (*gorm.DB, error) {
	if cfg == nil {
		cfg = &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true}
	}
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// OpenTestDB returns a migrated in-memory SQLite database.
func OpenTestDB() (*gorm.DB, error) {
	db, err := OpenSQLite(":memory:", nil)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, err
	}
	return db, nil
}
