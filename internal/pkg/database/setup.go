package database

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var DB *gorm.DB

// GetDB returns the process-wide database handle set up by SetupDatabase.
func GetDB() *gorm.DB {
	return DB
}

// Models lists every table managed by AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.UserSettings{},
		&models.ProviderAccount{},
		&models.Form{},
		&models.Submission{},
		&models.IntegrationSettings{},
		&models.BillingSubscription{},
		&models.BillingWebhookEvent{},
	}
}

// SetupDatabase connects to MySQL (or SQLite when DB_DRIVER=sqlite) with
// retries and migrates the schema.
func SetupDatabase() {
	var err error
	for i := 0; i < maxRetries; i++ {
		DB, err = Open()
		if err == nil {
			if err = DB.AutoMigrate(Models()...); err == nil {
				return
			}
			log.Errorf("[Database] AutoMigrate failed: %v", err)
		} else {
			log.Warnf("[Database] Failed to connect (try %d/%d): %v", i+1, maxRetries, err)
		}
		if i < maxRetries-1 {
			log.Infof("[Database] Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}

// Open opens the configured database without migrating.
func Open() (*gorm.DB, error) {
	// Unique violations surface as gorm.ErrDuplicatedKey on both drivers.
	cfg := &gorm.Config{Logger: gormLogger(), TranslateError: true}
	if env.GetEnv("DB_DRIVER", "mysql") == "sqlite" {
		return OpenSQLite(env.GetEnv("DB_SQLITE_PATH", "formfox.db"), cfg)
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:               dsn,
		DefaultStringSize: 256,
		// datetime(3): submission timestamps are cursor keys with millisecond precision
		DisableDatetimePrecision:  false,
		DontSupportRenameIndex:    true,
		DontSupportRenameColumn:   true,
		SkipInitializeWithVersion: false,
	}), cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(env.GetEnvInt("DB_MAX_OPEN_CONNS", 25))
	sqlDB.SetMaxIdleConns(env.GetEnvInt("DB_MAX_IDLE_CONNS", 5))
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func gormLogger() logger.Interface {
	if env.IsDev() {
		return logger.Default.LogMode(logger.Warn)
	}
	return logger.Default.LogMode(logger.Error)
}
