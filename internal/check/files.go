package check

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/voicebot/codexreview/internal/config"
	"github.com/voicebot/codexreview/internal/configfiles"
)

// TemplateType represents the embedded template a missing file is created from
type TemplateType int

const (
	TemplateConfig TemplateType = iota
	TemplatePromptCard
)

// FileConfig represents a file to check
type FileConfig struct {
	Path        string
	Description string
	Template    TemplateType
}

// FileCheckResult represents the result of a file check
type FileCheckResult struct {
	Path        string
	Exists      bool
	Created     bool
	Description string
	Error       error
}

func (c *Checker) configFile() FileConfig {
	return FileConfig{
		Path:        c.configPath,
		Description: "Service configuration (server, worker, review, telegram)",
		Template:    TemplateConfig,
	}
}

// promptCardFile is the first place the prompt loader looks for the card
func (c *Checker) promptCardFile(cfg *config.Config) FileConfig {
	base := c.baseDir()
	path := filepath.Join(base, config.DefaultPromptCardRelativePath)
	if configured := strings.TrimSpace(cfg.Review.PromptCardPath); configured != "" {
		if filepath.IsAbs(configured) {
			path = configured
		} else {
			path = filepath.Join(base, configured)
		}
	}
	return FileConfig{
		Path:        path,
		Description: "Deferred review prompt card",
		Template:    TemplatePromptCard,
	}
}

// checkFile checks a single file and prompts for creation if missing
func (c *Checker) checkFile(file FileConfig) FileCheckResult {
	result := FileCheckResult{
		Path:        file.Path,
		Description: file.Description,
	}
	defer func() { c.report.AddFileResult(result) }()

	if fileExists(file.Path) {
		result.Exists = true
		printFileStatus(file.Path, true)
		return result
	}
	printFileStatus(file.Path, false)

	confirm, err := c.confirm(file.Path)
	if err != nil {
		result.Error = fmt.Errorf("failed to get user confirmation: %w", err)
		return result
	}
	if !confirm {
		return result
	}

	content, err := getTemplateContent(file.Template)
	if err != nil {
		result.Error = fmt.Errorf("failed to get template: %w", err)
		return result
	}

	written, err := configfiles.WriteIfMissing(file.Path, content)
	if err != nil {
		result.Error = fmt.Errorf("failed to create file %s: %w", file.Path, err)
		return result
	}
	result.Exists = true
	result.Created = written
	if written {
		printFileCreated(file.Path)
	}
	return result
}

// getTemplateContent returns the embedded template content
func getTemplateContent(t TemplateType) ([]byte, error) {
	switch t {
	case TemplateConfig:
		return configfiles.GetConfigExample()
	case TemplatePromptCard:
		card := configfiles.GetPromptCard()
		if card == "" {
			return nil, fmt.Errorf("embedded prompt card is empty")
		}
		return []byte(card), nil
	default:
		return nil, fmt.Errorf("unknown template type: %d", t)
	}
}

func printFileStatus(path string, exists bool) {
	if exists {
		color.New(color.FgGreen).Printf("  ✓ %s\n", path)
		return
	}
	color.New(color.FgYellow).Printf("  ⚠ %s does not exist\n", path)
}

func printFileCreated(path string) {
	color.New(color.FgGreen).Printf("  ✓ Created %s\n", path)
}
