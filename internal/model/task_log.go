// Package model provides database model definitions.
package model

import (
	"time"
)

// LogLevel represents the log level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelFatal LogLevel = "fatal"
)

// TaskLog is a log line captured for a task while a review job handled it
type TaskLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	TaskID string `gorm:"size:20;not null;index" json:"task_id"`
	JobID  string `gorm:"size:64;index" json:"job_id,omitempty"`

	Level   LogLevel `gorm:"size:10;not null;index" json:"level"`
	Logger  string   `gorm:"size:100" json:"logger,omitempty"`
	Message string   `gorm:"type:text;not null" json:"message"`
	Fields  JSONMap  `gorm:"type:text" json:"fields,omitempty"`

	Caller string `gorm:"size:255" json:"caller,omitempty"`
}

// TableName specifies the table name for TaskLog
func (TaskLog) TableName() string {
	return "task_logs"
}

// TaskLogQuery represents query parameters for listing task logs
type TaskLogQuery struct {
	TaskID string   `json:"task_id"`
	Level  LogLevel `json:"level,omitempty"`
	Limit  int      `json:"limit,omitempty"`
	Offset int      `json:"offset,omitempty"`
}
