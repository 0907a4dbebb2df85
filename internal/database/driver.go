// Package database provides database driver abstraction for extensibility.
// Only SQLite is wired today; the interface keeps room for a server database
// shared with the other services that write the tasks table.
package database

import "gorm.io/gorm"

// Driver defines the database driver interface
type Driver interface {
	// Name returns the driver name (e.g., "sqlite")
	Name() string

	// Open returns a GORM dialector for the given DSN
	Open(dsn string) (gorm.Dialector, error)

	// Configure applies connection pool and session settings after the connection is opened
	Configure(db *gorm.DB) error
}
