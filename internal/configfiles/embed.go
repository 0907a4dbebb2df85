// Package configfiles provides files embedded into the codexreview binary.
// These files are used as templates for initializing user configuration and
// as the prompt card of last resort.
package configfiles

import (
	"embed"
	"os"
	"path/filepath"
)

const (
	configExampleName = "config.example.yaml"
	promptCardName    = "codex_deferred_review.md"
)

//go:embed config.example.yaml
//go:embed codex_deferred_review.md
var configFS embed.FS

// GetConfigExample returns the example configuration file content
func GetConfigExample() ([]byte, error) {
	return configFS.ReadFile(configExampleName)
}

// GetPromptCard returns the built-in deferred review prompt card
func GetPromptCard() string {
	data, err := configFS.ReadFile(promptCardName)
	if err != nil {
		return ""
	}
	return string(data)
}

// WriteIfMissing writes data to path unless a file already exists there.
// Parent directories are created as needed. It reports whether the file was written.
func WriteIfMissing(path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, err
	}
	return true, nil
}
