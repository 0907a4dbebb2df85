// Package prompt loads the deferred review prompt card and renders the
// prompt sent to the review agent.
package prompt

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/voicebot/codexreview/internal/configfiles"
	"github.com/voicebot/codexreview/pkg/logger"
)

// DefaultCardRelativePath is where the prompt card lives inside the repository.
var DefaultCardRelativePath = filepath.Join("agents", "agent-cards", "codex_deferred_review.md")

// Card is a prompt card. Path is empty when the built-in card is used.
type Card struct {
	Text string
	Path string
}

// IsFallback reports whether the card is the built-in one.
func (c Card) IsFallback() bool {
	return c.Path == ""
}

// FallbackCard returns the built-in card.
func FallbackCard() Card {
	return Card{Text: configfiles.GetPromptCard()}
}

// Loader finds the prompt card on disk. It reads the file on every Load.
type Loader struct {
	// ConfiguredPath is tried first. Relative paths resolve against Cwd.
	ConfiguredPath string
	// Cwd is the base directory. Empty means the process working directory.
	Cwd string

	readFile func(string) ([]byte, error)
}

// NewLoader creates a Loader for the configured path.
func NewLoader(configuredPath string) *Loader {
	return &Loader{ConfiguredPath: configuredPath}
}

// CandidatePaths lists card locations in the order they are tried, without duplicates.
func CandidatePaths(configured, cwd string) []string {
	var paths []string
	configured = strings.TrimSpace(configured)
	if configured != "" {
		if filepath.IsAbs(configured) {
			paths = append(paths, filepath.Clean(configured))
		} else {
			paths = append(paths, filepath.Join(cwd, configured))
		}
	}
	paths = append(paths,
		filepath.Join(cwd, "..", DefaultCardRelativePath),
		filepath.Join(cwd, DefaultCardRelativePath),
		filepath.Join(cwd, "..", "..", DefaultCardRelativePath),
	)

	seen := make(map[string]bool, len(paths))
	unique := paths[:0]
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		unique = append(unique, p)
	}
	return unique
}

// Load returns the first readable non-blank card, or the built-in card.
func (l *Loader) Load() Card {
	cwd := l.Cwd
	if cwd == "" {
		if wd, err := os.Getwd(); err == nil {
			cwd = wd
		}
	}
	read := l.readFile
	if read == nil {
		read = os.ReadFile
	}

	for _, candidate := range CandidatePaths(l.ConfiguredPath, cwd) {
		data, err := read(candidate)
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(data)) != "" {
			return Card{Text: string(data), Path: candidate}
		}
	}

	logger.Debug("Prompt card not found on disk, using built-in card",
		zap.String("configured_path", l.ConfiguredPath),
		zap.String("cwd", cwd),
	)
	return FallbackCard()
}
