// Package database provides database initialization and connection management.
// It uses GORM with SQLite for embedded storage of tasks and task logs.
package database

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/voicebot/codexreview/internal/model"
	"github.com/voicebot/codexreview/pkg/errors"
	"github.com/voicebot/codexreview/pkg/logger"
)

const (
	// DefaultDBPath is the default database file path
	DefaultDBPath = "./data/codexreview.db"
)

var (
	db   *gorm.DB
	once sync.Once
)

// Config holds database settings
type Config struct {
	Path          string `yaml:"path"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
}

// Init initializes the global database connection and performs auto-migration.
// Only the first call takes effect.
func Init(cfg Config) error {
	var initErr error
	once.Do(func() {
		db, initErr = Open(cfg)
	})
	return initErr
}

// InitWithPath initializes the global database with a custom path.
func InitWithPath(dbPath string) error {
	return Init(Config{Path: dbPath})
}

// Open creates a new connection, applies driver settings and migrates all models.
// Unlike Init it does not touch the global instance.
func Open(cfg Config) (*gorm.DB, error) {
	dbPath := cfg.Path
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	logger.Info("Initializing database", zap.String("path", dbPath))

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("Failed to create database directory", zap.Error(err), zap.String("dir", dir))
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to create database directory", err)
	}

	driver := &SQLiteDriver{BusyTimeoutMS: cfg.BusyTimeoutMS}

	dialector, err := driver.Open(dbPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to open database", err)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to connect to database", err)
	}

	if err := driver.Configure(conn); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to configure database", err)
	}

	if err := migrate(conn); err != nil {
		return nil, err
	}

	logger.Info("Database initialized successfully", zap.String("driver", driver.Name()))
	return conn, nil
}

// migrate runs auto-migration for all models
func migrate(conn *gorm.DB) error {
	models := model.AllModels()
	if err := conn.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run database migrations", zap.Error(err))
		return errors.Wrap(errors.ErrCodeDBMigration, "failed to run database migrations", err)
	}
	logger.Debug("Database migrations completed", zap.Int("models", len(models)))
	return nil
}

// Get returns the database instance.
// Panics if the database hasn't been initialized.
func Get() *gorm.DB {
	if db == nil {
		panic("database not initialized, call Init first")
	}
	return db
}

// Close closes the global database connection
func Close() error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	logger.Info("Closing database connection")
	return sqlDB.Close()
}

// ResetForTesting closes the global connection and allows Init to run again.
// Only use this in tests.
func ResetForTesting() {
	if db != nil {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
		db = nil
	}
	once = sync.Once{}
}

// HealthCheck pings the global database
func HealthCheck() error {
	if db == nil {
		return errors.New(errors.ErrCodeDBConnection, "database not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to get database connection", err)
	}
	return sqlDB.Ping()
}
