// Package config provides configuration management for the application.
// This file contains validation functions for configuration values.
package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/voicebot/codexreview/pkg/errors"
)

// MinJWTSecretLength is the minimum length for the JWT secret (256 bits for HS256)
const MinJWTSecretLength = 32

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < MinJWTSecretLength {
		problems = append(problems, fmt.Sprintf("auth.jwt_secret must be at least %d characters", MinJWTSecretLength))
	}
	if strings.TrimSpace(c.Review.CodexBin) == "" {
		problems = append(problems, "review.codex_bin is required")
	}
	if strings.TrimSpace(c.Beads.Bin) == "" {
		problems = append(problems, "beads.bin is required")
	}
	if c.Worker.Workers <= 0 {
		problems = append(problems, "worker.workers must be positive")
	}
	if c.Worker.QueueSize <= 0 {
		problems = append(problems, "worker.queue_size must be positive")
	}
	if err := validateCron(c.Worker.ScanCron); err != nil {
		problems = append(problems, fmt.Sprintf("worker.scan_cron: %v", err))
	}
	if c.TaskLog.Enabled {
		if err := validateCron(c.TaskLog.CleanupCron); err != nil {
			problems = append(problems, fmt.Sprintf("task_log.cleanup_cron: %v", err))
		}
	}

	if len(problems) > 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "invalid configuration: "+strings.Join(problems, "; "))
	}
	return nil
}

// Warnings returns non-fatal configuration observations worth logging at startup.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Telegram.BotToken == "" {
		warnings = append(warnings, "telegram bot token is not set; approval cards will fail and jobs will be retried")
	}
	if c.Auth.JWTSecret == "" {
		warnings = append(warnings, "auth.jwt_secret is empty; the task API is disabled")
	}
	return warnings
}

func validateCron(spec string) error {
	if strings.TrimSpace(spec) == "" {
		return fmt.Errorf("empty schedule")
	}
	_, err := cron.ParseStandard(spec)
	return err
}
