// Package database provides SQLite driver implementation with optimizations.
package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/voicebot/codexreview/pkg/logger"
)

// SQLiteDriver implements the Driver interface for SQLite database
type SQLiteDriver struct {
	// BusyTimeoutMS is how long a writer waits on a locked database
	BusyTimeoutMS int
}

// Name returns the driver name
func (d *SQLiteDriver) Name() string {
	return "sqlite"
}

// Open opens a SQLite database connection
func (d *SQLiteDriver) Open(dsn string) (gorm.Dialector, error) {
	timeout := d.BusyTimeoutMS
	if timeout <= 0 {
		timeout = 5000
	}
	return sqlite.Open(fmt.Sprintf("%s?_pragma=busy_timeout(%d)", dsn, timeout)), nil
}

// Configure limits SQLite to a single connection and enables WAL.
// One connection serializes writers, so the conditional claim UPDATE is
// evaluated and applied without interleaving.
func (d *SQLiteDriver) Configure(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
		logger.Warn("Failed to enable WAL mode", zap.Error(err))
	}
	if err := db.Exec("PRAGMA synchronous = NORMAL").Error; err != nil {
		logger.Warn("Failed to set synchronous mode", zap.Error(err))
	}

	logger.Debug("SQLite config applied",
		zap.String("journal_mode", "WAL"),
		zap.Int("max_open_conns", 1),
	)
	return nil
}
