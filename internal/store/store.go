// Package store provides data access layer interfaces and implementations.
// This package abstracts database operations to improve maintainability
// and decouple business logic from specific database implementations.
package store

import "gorm.io/gorm"

// Store aggregates all data store interfaces.
// It provides a single point of access for all database operations.
type Store interface {
	Task() TaskStore
	TaskLog() TaskLogStore

	// DB returns the underlying database connection for advanced operations.
	// Use sparingly - prefer using specific store methods.
	DB() *gorm.DB

	// Transaction executes operations within a database transaction.
	Transaction(fn func(Store) error) error
}

// gormStore implements Store interface using GORM.
type gormStore struct {
	db           *gorm.DB
	taskStore    TaskStore
	taskLogStore TaskLogStore
}

// NewStore creates a new Store instance with GORM backend.
func NewStore(db *gorm.DB) Store {
	return newGormStore(db)
}

func newGormStore(db *gorm.DB) *gormStore {
	return &gormStore{
		db:           db,
		taskStore:    newTaskStore(db),
		taskLogStore: NewTaskLogStore(db),
	}
}

func (s *gormStore) Task() TaskStore {
	return s.taskStore
}

func (s *gormStore) TaskLog() TaskLogStore {
	return s.taskLogStore
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Transaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(newGormStore(tx))
	})
}
