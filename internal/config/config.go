// Package config provides configuration management for the application.
// It supports YAML configuration files with ${VAR} expansion and the
// VOICEBOT_CODEX_REVIEW_* environment overrides used by the worker fleet.
package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/voicebot/codexreview/consts"
	"github.com/voicebot/codexreview/internal/database"
	"github.com/voicebot/codexreview/pkg/logger"
	"github.com/voicebot/codexreview/pkg/telemetry"
)

// Default configuration values
const (
	DefaultConfigPath             = "config/config.yaml"
	DefaultPromptCardRelativePath = "agents/agent-cards/codex_deferred_review.md"
	defaultCodexBin               = "codex"
	defaultBDBin                  = "bd"
	defaultCodexTimeoutMS         = 180_000
	defaultKillGraceMS            = 2_000
	defaultRetryDelayMS           = 5 * 60 * 1000
	defaultBDTimeoutMS            = 20_000
	defaultTelegramAPIBase        = "https://api.telegram.org"
	defaultTelegramChatID         = "-1002820582847"
	defaultTelegramThreadID       = 11091
	defaultTelegramTimeoutMS      = 15_000
	defaultWorkers                = 2
	defaultQueueSize              = 256
	defaultScanCron               = "@every 30s"
	defaultScanBatchSize          = 50
	defaultStaleClaimMS           = 15 * 60 * 1000
	defaultTaskLogRetentionDays   = 14
	defaultTaskLogCleanupCron     = "0 3 * * *"
	defaultTokenExpiryHours       = 24
)

// Environment variables read by ApplyEnv
const (
	EnvPromptCardPath   = "VOICEBOT_CODEX_REVIEW_PROMPT_CARD_PATH"
	EnvCodexBin         = "VOICEBOT_CODEX_REVIEW_BIN"
	EnvCodexModel       = "VOICEBOT_CODEX_REVIEW_MODEL"
	EnvCodexProfile     = "VOICEBOT_CODEX_REVIEW_PROFILE"
	EnvCodexTimeoutMS   = "VOICEBOT_CODEX_REVIEW_TIMEOUT_MS"
	EnvWorkdir          = "VOICEBOT_CODEX_REVIEW_WORKDIR"
	EnvBDBin            = "VOICEBOT_CODEX_REVIEW_BD_BIN"
	EnvRetryDelayMS     = "VOICEBOT_CODEX_REVIEW_RETRY_DELAY_MS"
	EnvTelegramToken    = "VOICEBOT_CODEX_REVIEW_TELEGRAM_BOT_TOKEN"
	EnvTelegramTokenAlt = "TG_VOICE_BOT_TOKEN"
	EnvTelegramChatID   = "VOICEBOT_CODEX_REVIEW_TELEGRAM_CHAT_ID"
	EnvTelegramThreadID = "VOICEBOT_CODEX_REVIEW_TELEGRAM_THREAD_ID"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Database  database.Config  `yaml:"database"`
	Logging   logger.Config    `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Auth      AuthConfig       `yaml:"auth"`
	Review    ReviewConfig     `yaml:"review"`
	Beads     BeadsConfig      `yaml:"beads"`
	Telegram  TelegramConfig   `yaml:"telegram"`
	Worker    WorkerConfig     `yaml:"worker"`
	TaskLog   TaskLogConfig    `yaml:"task_log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Debug bool   `yaml:"debug"`
}

// AuthConfig holds operator API authentication settings.
// An empty JWTSecret disables the task API.
type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpiryHours int    `yaml:"token_expiry_hours"`
}

// ReviewConfig holds the codex review runner and retry settings
type ReviewConfig struct {
	PromptCardPath string `yaml:"prompt_card_path"`
	CodexBin       string `yaml:"codex_bin"`
	Model          string `yaml:"model"`
	Profile        string `yaml:"profile"`
	TimeoutMS      int    `yaml:"timeout_ms"`
	KillGraceMS    int    `yaml:"kill_grace_ms"`
	Workdir        string `yaml:"workdir"`
	RetryDelayMS   int    `yaml:"retry_delay_ms"`
}

// BeadsConfig holds the bd issue CLI settings
type BeadsConfig struct {
	Bin             string `yaml:"bin"`
	ShowTimeoutMS   int    `yaml:"show_timeout_ms"`
	UpdateTimeoutMS int    `yaml:"update_timeout_ms"`
}

// TelegramConfig holds the approval card target and bot settings
type TelegramConfig struct {
	BotToken      string `yaml:"bot_token"`
	ChatID        string `yaml:"chat_id"`
	ThreadID      int64  `yaml:"thread_id"`
	APIBaseURL    string `yaml:"api_base_url"`
	TimeoutMS     int    `yaml:"timeout_ms"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// WorkerConfig holds the in-process queue, worker pool and scanner settings
type WorkerConfig struct {
	Workers   int    `yaml:"workers"`
	QueueSize int    `yaml:"queue_size"`
	ScanCron  string `yaml:"scan_cron"`
	BatchSize int    `yaml:"batch_size"`
	// StaleClaimMS is how long a claim may stay processing before the
	// scanner releases it
	StaleClaimMS int `yaml:"stale_claim_ms"`
}

// TaskLogConfig controls capture and retention of per-task logs
type TaskLogConfig struct {
	Enabled       bool   `yaml:"enabled"`
	RetentionDays int    `yaml:"retention_days"`
	CleanupCron   string `yaml:"cleanup_cron"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: database.Config{
			Path:          database.DefaultDBPath,
			BusyTimeoutMS: 5000,
		},
		Logging: logger.Config{
			Level:      "info",
			Format:     "text",
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 5,
		},
		Telemetry: telemetry.Config{
			Enabled:     false,
			ServiceName: consts.ServiceName,
			OTLP: telemetry.OTLPConfig{
				Endpoint: "localhost:4317",
				Insecure: true,
			},
			Prometheus: telemetry.PrometheusConfig{
				Enabled: false,
			},
		},
		Auth: AuthConfig{
			TokenExpiryHours: defaultTokenExpiryHours,
		},
		Review: ReviewConfig{
			CodexBin:     defaultCodexBin,
			TimeoutMS:    defaultCodexTimeoutMS,
			KillGraceMS:  defaultKillGraceMS,
			RetryDelayMS: defaultRetryDelayMS,
		},
		Beads: BeadsConfig{
			Bin:             defaultBDBin,
			ShowTimeoutMS:   defaultBDTimeoutMS,
			UpdateTimeoutMS: defaultBDTimeoutMS,
		},
		Telegram: TelegramConfig{
			ChatID:     defaultTelegramChatID,
			ThreadID:   defaultTelegramThreadID,
			APIBaseURL: defaultTelegramAPIBase,
			TimeoutMS:  defaultTelegramTimeoutMS,
		},
		Worker: WorkerConfig{
			Workers:      defaultWorkers,
			QueueSize:    defaultQueueSize,
			ScanCron:     defaultScanCron,
			BatchSize:    defaultScanBatchSize,
			StaleClaimMS: defaultStaleClaimMS,
		},
		TaskLog: TaskLogConfig{
			Enabled:       true,
			RetentionDays: defaultTaskLogRetentionDays,
			CleanupCron:   defaultTaskLogCleanupCron,
		},
	}
}

// Load loads configuration from a YAML file with environment variable expansion,
// then applies the environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, err
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// LoadOrDefault loads path when it exists, otherwise returns defaults with
// environment overrides applied.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	cfg := Default()
	cfg.ApplyEnv()
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values
func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		parts := strings.SplitN(match[2:len(match)-1], ":-", 2)
		if value := os.Getenv(parts[0]); value != "" {
			return value
		}
		if len(parts) > 1 {
			return parts[1]
		}
		return ""
	})
}

// ApplyEnv overrides settings from the VOICEBOT_CODEX_REVIEW_* environment.
// Blank strings and non-positive numbers are ignored.
func (c *Config) ApplyEnv() {
	setString(&c.Review.PromptCardPath, EnvPromptCardPath)
	setString(&c.Review.CodexBin, EnvCodexBin)
	setString(&c.Review.Model, EnvCodexModel)
	setString(&c.Review.Profile, EnvCodexProfile)
	setString(&c.Review.Workdir, EnvWorkdir)
	setPositiveInt(&c.Review.TimeoutMS, EnvCodexTimeoutMS)
	setPositiveInt(&c.Review.RetryDelayMS, EnvRetryDelayMS)
	setString(&c.Beads.Bin, EnvBDBin)

	if c.Telegram.BotToken == "" {
		setString(&c.Telegram.BotToken, EnvTelegramTokenAlt)
	}
	setString(&c.Telegram.BotToken, EnvTelegramToken)
	setString(&c.Telegram.ChatID, EnvTelegramChatID)
	if raw := strings.TrimSpace(os.Getenv(EnvTelegramThreadID)); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v > 0 {
			c.Telegram.ThreadID = v
		}
	}
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

func setPositiveInt(dst *int, env string) {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(env)))
	if err == nil && v > 0 {
		*dst = v
	}
}

// Address returns the server address string
func (c *ServerConfig) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Timeout returns the codex run timeout
func (c *ReviewConfig) Timeout() time.Duration {
	return msOrDefault(c.TimeoutMS, defaultCodexTimeoutMS)
}

// KillGrace returns the wait between SIGTERM and SIGKILL
func (c *ReviewConfig) KillGrace() time.Duration {
	return msOrDefault(c.KillGraceMS, defaultKillGraceMS)
}

// RetryDelay returns the delay before a failed task becomes eligible again
func (c *ReviewConfig) RetryDelay() time.Duration {
	return msOrDefault(c.RetryDelayMS, defaultRetryDelayMS)
}

// ShowTimeout returns the bd show timeout
func (c *BeadsConfig) ShowTimeout() time.Duration {
	return msOrDefault(c.ShowTimeoutMS, defaultBDTimeoutMS)
}

// UpdateTimeout returns the bd update timeout
func (c *BeadsConfig) UpdateTimeout() time.Duration {
	return msOrDefault(c.UpdateTimeoutMS, defaultBDTimeoutMS)
}

// Timeout returns the Telegram HTTP timeout
func (c *TelegramConfig) Timeout() time.Duration {
	return msOrDefault(c.TimeoutMS, defaultTelegramTimeoutMS)
}

// StaleClaimAfter returns the age at which a processing claim counts as abandoned
func (c *WorkerConfig) StaleClaimAfter() time.Duration {
	return msOrDefault(c.StaleClaimMS, defaultStaleClaimMS)
}

// TokenExpiry returns operator token lifetime
func (c *AuthConfig) TokenExpiry() time.Duration {
	hours := c.TokenExpiryHours
	if hours <= 0 {
		hours = defaultTokenExpiryHours
	}
	return time.Duration(hours) * time.Hour
}

func msOrDefault(ms, def int) time.Duration {
	if ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}
