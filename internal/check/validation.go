package check

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/voicebot/codexreview/internal/config"
	"github.com/voicebot/codexreview/internal/prompt"
)

// ValidationResult represents the result of one environment check
type ValidationResult struct {
	Name   string
	Detail string
	Valid  bool
	// Critical results block server startup when they fail
	Critical bool
	Error    error
	Warnings []string
}

// validate runs every check against the effective configuration
func (c *Checker) validate(cfg *config.Config, loadErr error) []ValidationResult {
	return []ValidationResult{
		c.validateConfig(cfg, loadErr),
		c.validateBinary("codex", cfg.Review.CodexBin, "reviews fall back to task fields"),
		c.validateBinary("bd", cfg.Beads.Bin, "issue context and notes are skipped"),
		validateTelegram(cfg),
		c.validatePromptCard(cfg),
	}
}

func (c *Checker) validateConfig(cfg *config.Config, loadErr error) ValidationResult {
	result := ValidationResult{Name: "config", Detail: c.configPath, Critical: true}
	if loadErr != nil {
		result.Error = fmt.Errorf("cannot load %s: %w", c.configPath, loadErr)
		return result
	}
	if err := cfg.Validate(); err != nil {
		result.Error = err
		return result
	}
	result.Valid = true
	result.Warnings = cfg.Warnings()
	return result
}

func (c *Checker) validateBinary(name, bin, degraded string) ValidationResult {
	result := ValidationResult{Name: name}
	path, err := c.lookPath(bin)
	if err != nil {
		result.Error = fmt.Errorf("%s not found on PATH; %s", bin, degraded)
		return result
	}
	result.Valid = true
	result.Detail = path
	return result
}

func validateTelegram(cfg *config.Config) ValidationResult {
	result := ValidationResult{Name: "telegram", Detail: cfg.Telegram.APIBaseURL}
	if strings.TrimSpace(cfg.Telegram.ChatID) == "" {
		result.Error = fmt.Errorf("chat id is not set; approval cards cannot be delivered")
		return result
	}
	result.Valid = true
	if cfg.Telegram.WebhookSecret == "" {
		result.Warnings = append(result.Warnings, "telegram.webhook_secret is empty; callback updates are not authenticated")
	}
	return result
}

func (c *Checker) validatePromptCard(cfg *config.Config) ValidationResult {
	loader := prompt.NewLoader(cfg.Review.PromptCardPath)
	loader.Cwd = c.baseDir()
	card := loader.Load()

	result := ValidationResult{Name: "prompt card", Valid: true, Detail: card.Path}
	if card.IsFallback() {
		result.Detail = "built-in"
		result.Warnings = append(result.Warnings, "no prompt card found on disk; the built-in card is used")
	}
	return result
}

// printValidationResult prints the validation result
func printValidationResult(result ValidationResult) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	switch {
	case result.Valid && result.Detail != "":
		green.Printf("  ✓ %s (%s)\n", result.Name, result.Detail)
	case result.Valid:
		green.Printf("  ✓ %s\n", result.Name)
	case result.Critical:
		red.Printf("  ✗ %s: %v\n", result.Name, result.Error)
	default:
		yellow.Printf("  ⚠ %s: %v\n", result.Name, result.Error)
	}

	for _, warning := range result.Warnings {
		yellow.Printf("    └─ %s\n", warning)
	}
}
