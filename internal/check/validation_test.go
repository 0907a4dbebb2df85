package check

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/voicebot/codexreview/internal/config"
)

func TestValidateBinary(t *testing.T) {
	c, _ := newTestChecker(t)

	ok := c.validateBinary("codex", "codex", "degraded")
	if !ok.Valid || ok.Detail != "/usr/bin/codex" {
		t.Errorf("unexpected result %+v", ok)
	}

	c.lookPath = func(string) (string, error) { return "", errors.New("missing") }
	missing := c.validateBinary("bd", "bd", "issue context and notes are skipped")
	if missing.Valid || missing.Critical || missing.Error == nil {
		t.Errorf("unexpected result %+v", missing)
	}
}

func TestValidateTelegram(t *testing.T) {
	cfg := config.Default()
	cfg.Telegram.ChatID = "-100123"
	cfg.Telegram.WebhookSecret = ""

	result := validateTelegram(cfg)
	if !result.Valid {
		t.Errorf("expected valid, got %+v", result)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("expected webhook secret warning, got %v", result.Warnings)
	}

	cfg.Telegram.ChatID = " "
	if result := validateTelegram(cfg); result.Valid || result.Error == nil {
		t.Errorf("empty chat id should fail, got %+v", result)
	}
}

func TestValidatePromptCard(t *testing.T) {
	c, dir := newTestChecker(t)
	cfg := config.Default()

	builtIn := c.validatePromptCard(cfg)
	if builtIn.Detail != "built-in" || len(builtIn.Warnings) != 1 {
		t.Errorf("unexpected result %+v", builtIn)
	}

	cardPath := filepath.Join(dir, "cards", "review.md")
	writeFile(t, cardPath, "Review the task.\n")
	cfg.Review.PromptCardPath = "cards/review.md"

	onDisk := c.validatePromptCard(cfg)
	if onDisk.Detail != cardPath || len(onDisk.Warnings) != 0 {
		t.Errorf("unexpected result %+v", onDisk)
	}
}

func TestValidateConfig(t *testing.T) {
	c, _ := newTestChecker(t)

	loadFailed := c.validateConfig(nil, errors.New("boom"))
	if loadFailed.Valid || !loadFailed.Critical {
		t.Errorf("load failure should be critical, got %+v", loadFailed)
	}

	cfg := config.Default()
	cfg.Worker.Workers = 0
	if invalid := c.validateConfig(cfg, nil); invalid.Valid || invalid.Error == nil {
		t.Errorf("invalid config should fail, got %+v", invalid)
	}

	if valid := c.validateConfig(config.Default(), nil); !valid.Valid {
		t.Errorf("defaults should validate, got %+v", valid)
	}
}

func TestValidatePromptCard_BackendCwdIgnoresWorkdir(t *testing.T) {
	c, dir := newTestChecker(t)
	backend := filepath.Join(dir, "backend")
	c.cwd = backend
	cardPath := filepath.Join(backend, config.DefaultPromptCardRelativePath)
	writeFile(t, cardPath, "Backend card\n")

	cfg := config.Default()
	cfg.Review.Workdir = ""

	result := c.validatePromptCard(cfg)
	if result.Detail != cardPath {
		t.Errorf("Detail = %q, want %q", result.Detail, cardPath)
	}
	if got := c.promptCardFile(cfg).Path; got != cardPath {
		t.Errorf("promptCardFile() = %q, want %q", got, cardPath)
	}
}
