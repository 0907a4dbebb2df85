// Package check provides interactive environment checking and initialization.
// It helps operators set up a working codexreview installation.
package check

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/voicebot/codexreview/internal/config"
)

// CheckResult represents the result of a non-interactive environment check
type CheckResult struct {
	// Success indicates whether all required checks passed
	Success bool
	// Errors contains critical errors that prevent server startup
	Errors []string
	// Warnings contains non-critical issues that don't block startup
	Warnings []string
	// Suggestions contains helpful tips for fixing issues
	Suggestions []string
}

// Checker handles environment checking and initialization
type Checker struct {
	// configPath is the YAML configuration file
	configPath string
	// cwd is the base for the prompt card lookup. Empty means the process cwd.
	cwd string
	// report collects check results for final output
	report *Report
	theme  *huh.Theme

	lookPath func(string) (string, error)
	confirm  func(title string) (bool, error)
}

// NewChecker creates a new environment checker for the given config file
func NewChecker(configPath string) *Checker {
	c := &Checker{
		configPath: configPath,
		report:     NewReport(),
		theme:      huh.ThemeCharm(),
		lookPath:   exec.LookPath,
	}
	c.confirm = c.confirmCreate
	return c
}

// Report returns the collected results of the last Run
func (c *Checker) Report() *Report {
	return c.report
}

// Run executes the full environment check, offering to create missing files
func (c *Checker) Run() error {
	c.printHeader()

	fmt.Println()
	printSection("Checking configuration file")
	if result := c.checkFile(c.configFile()); result.Error != nil {
		return fmt.Errorf("file check failed: %w", result.Error)
	}

	cfg, loadErr := c.loadConfig()
	if loadErr != nil {
		// Defaults still let the remaining checks run.
		cfg = config.Default()
		cfg.ApplyEnv()
	}

	fmt.Println()
	printSection("Checking prompt card")
	if result := c.checkFile(c.promptCardFile(cfg)); result.Error != nil {
		return fmt.Errorf("file check failed: %w", result.Error)
	}

	fmt.Println()
	printSection("Validating environment")
	for _, result := range c.validate(cfg, loadErr) {
		c.report.AddValidationResult(result)
		printValidationResult(result)
	}

	fmt.Println()
	c.report.Print()
	return nil
}

// RunNonInteractive performs the check without prompting or creating files.
// Missing files become warnings because the service runs on defaults and the
// built-in prompt card; an unparsable or invalid config is an error.
func (c *Checker) RunNonInteractive() *CheckResult {
	result := &CheckResult{
		Success:     true,
		Errors:      make([]string, 0),
		Warnings:    make([]string, 0),
		Suggestions: make([]string, 0),
	}

	if !fileExists(c.configPath) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s not found, using defaults and environment", c.configPath))
		result.Suggestions = append(result.Suggestions,
			"Run 'codexreview check' to create the configuration file from the template")
	}

	cfg, loadErr := c.loadConfig()
	if loadErr != nil {
		cfg = config.Default()
		cfg.ApplyEnv()
	}

	for _, v := range c.validate(cfg, loadErr) {
		switch {
		case v.Error != nil && v.Critical:
			result.Success = false
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", v.Name, v.Error))
		case v.Error != nil:
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", v.Name, v.Error))
		}
		result.Warnings = append(result.Warnings, v.Warnings...)
	}

	if !result.Success {
		result.Suggestions = append(result.Suggestions,
			fmt.Sprintf("Fix %s and run 'codexreview check' again", c.configPath))
	}
	return result
}

// loadConfig reads the config file when present, otherwise defaults plus env
func (c *Checker) loadConfig() (*config.Config, error) {
	return config.LoadOrDefault(c.configPath)
}

// baseDir is where the prompt card lookup starts, as in the server
func (c *Checker) baseDir() string {
	if c.cwd != "" {
		return c.cwd
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func (c *Checker) printHeader() {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	fmt.Println(titleStyle.Render("🔍 codexreview environment check"))
}

func printSection(title string) {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15"))
	fmt.Println(style.Render(title + "..."))
}

// confirmCreate asks the user whether a missing file should be created
func (c *Checker) confirmCreate(path string) (bool, error) {
	var confirm bool
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("Create %s from template?", path)).
			Affirmative("Yes").
			Negative("No").
			Value(&confirm),
	)).WithTheme(c.theme).Run()
	if err != nil {
		return false, err
	}
	return confirm, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// PrintCheckResult prints the check result in a formatted way
func PrintCheckResult(result *CheckResult) {
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	if len(result.Errors) > 0 {
		fmt.Println()
		red.Println("[ERROR] Environment check failed")
		fmt.Println()
		for _, err := range result.Errors {
			red.Printf("  ✗ %s\n", err)
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Println()
		yellow.Println("[WARNING] Configuration warnings:")
		fmt.Println()
		for _, warn := range result.Warnings {
			yellow.Printf("  ⚠ %s\n", warn)
		}
	}

	if len(result.Suggestions) > 0 {
		cyan.Println("\nTo fix these issues:")
		for _, suggestion := range result.Suggestions {
			fmt.Printf("  → %s\n", suggestion)
		}
	}

	fmt.Println()
}
