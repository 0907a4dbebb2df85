package check

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/voicebot/codexreview/internal/config"
)

func TestCheckFile(t *testing.T) {
	t.Run("existing file is left alone", func(t *testing.T) {
		c, dir := newTestChecker(t)
		path := filepath.Join(dir, "config.yaml")
		writeFile(t, path, "server: {}\n")
		c.confirm = func(string) (bool, error) {
			t.Fatal("confirm should not be called for an existing file")
			return false, nil
		}

		result := c.checkFile(FileConfig{Path: path, Template: TemplateConfig})

		if !result.Exists || result.Created || result.Error != nil {
			t.Errorf("unexpected result %+v", result)
		}
		data, _ := os.ReadFile(path)
		if string(data) != "server: {}\n" {
			t.Error("existing file was modified")
		}
	})

	t.Run("declined creation", func(t *testing.T) {
		c, dir := newTestChecker(t)
		c.confirm = func(string) (bool, error) { return false, nil }
		path := filepath.Join(dir, "nested", "config.yaml")

		result := c.checkFile(FileConfig{Path: path, Template: TemplateConfig})

		if result.Exists || result.Created || result.Error != nil {
			t.Errorf("unexpected result %+v", result)
		}
		if fileExists(path) {
			t.Error("file should not be created")
		}
	})

	t.Run("creates nested prompt card", func(t *testing.T) {
		c, dir := newTestChecker(t)
		path := filepath.Join(dir, "a", "b", "card.md")

		result := c.checkFile(FileConfig{Path: path, Template: TemplatePromptCard})

		if !result.Created || result.Error != nil {
			t.Fatalf("unexpected result %+v", result)
		}
		if len(c.Report().FileResults) != 1 {
			t.Errorf("report has %d file results, want 1", len(c.Report().FileResults))
		}
	})

	t.Run("confirmation error", func(t *testing.T) {
		c, dir := newTestChecker(t)
		c.confirm = func(string) (bool, error) { return false, errors.New("aborted") }

		result := c.checkFile(FileConfig{Path: filepath.Join(dir, "x.yaml")})

		if result.Error == nil {
			t.Error("expected an error")
		}
	})
}

func TestPromptCardFile(t *testing.T) {
	c, dir := newTestChecker(t)

	tests := []struct {
		name       string
		configured string
		want       string
	}{
		{"default location", "", filepath.Join(dir, config.DefaultPromptCardRelativePath)},
		{"relative to cwd", "cards/review.md", filepath.Join(dir, "cards", "review.md")},
		{"absolute", "/etc/codexreview/card.md", "/etc/codexreview/card.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Review.PromptCardPath = tt.configured

			if got := c.promptCardFile(cfg).Path; got != tt.want {
				t.Errorf("promptCardFile() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetTemplateContent(t *testing.T) {
	for _, tmpl := range []TemplateType{TemplateConfig, TemplatePromptCard} {
		content, err := getTemplateContent(tmpl)
		if err != nil {
			t.Errorf("template %d: %v", tmpl, err)
		}
		if len(content) == 0 {
			t.Errorf("template %d is empty", tmpl)
		}
	}

	if _, err := getTemplateContent(TemplateType(99)); err == nil {
		t.Error("unknown template should fail")
	}
}
