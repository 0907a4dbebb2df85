package llm

import (
	"time"
)

// Default configuration values
const (
	DefaultTimeout   = 180 * time.Second
	DefaultKillGrace = 2 * time.Second
)

// ClientConfig contains configuration for an LLM client
type ClientConfig struct {
	// Name is the client identifier (e.g., "codex")
	Name string

	// CLIPath is the path to the CLI tool executable
	CLIPath string

	// DefaultModel is passed as --model when set and the request has none
	DefaultModel string

	// Profile selects a named CLI profile when set
	Profile string

	// DefaultTimeout is the default request timeout
	DefaultTimeout time.Duration

	// KillGrace is the wait between SIGTERM and SIGKILL after a timeout
	KillGrace time.Duration

	// WorkDir is the default working directory for the CLI process
	WorkDir string
}

// NewClientConfig creates a new ClientConfig with default values
func NewClientConfig(name string) *ClientConfig {
	return &ClientConfig{
		Name:           name,
		DefaultTimeout: DefaultTimeout,
		KillGrace:      DefaultKillGrace,
	}
}

// WithCLIPath sets the CLI path
func (c *ClientConfig) WithCLIPath(path string) *ClientConfig {
	c.CLIPath = path
	return c
}

// WithDefaultModel sets the default model
func (c *ClientConfig) WithDefaultModel(model string) *ClientConfig {
	c.DefaultModel = model
	return c
}

// WithProfile sets the CLI profile
func (c *ClientConfig) WithProfile(profile string) *ClientConfig {
	c.Profile = profile
	return c
}

// WithDefaultTimeout sets the default timeout
func (c *ClientConfig) WithDefaultTimeout(timeout time.Duration) *ClientConfig {
	c.DefaultTimeout = timeout
	return c
}

// WithKillGrace sets the SIGTERM to SIGKILL grace period
func (c *ClientConfig) WithKillGrace(grace time.Duration) *ClientConfig {
	c.KillGrace = grace
	return c
}

// WithWorkDir sets the default working directory
func (c *ClientConfig) WithWorkDir(dir string) *ClientConfig {
	c.WorkDir = dir
	return c
}

// GetTimeout returns the timeout to use, considering request options
func (c *ClientConfig) GetTimeout(req *Request) time.Duration {
	def := c.DefaultTimeout
	if def <= 0 {
		def = DefaultTimeout
	}
	if req != nil {
		return req.GetTimeout(def)
	}
	return def
}

// GetModel returns the model to use, considering request and default
func (c *ClientConfig) GetModel(req *Request) string {
	if req != nil && req.Model != "" {
		return req.Model
	}
	return c.DefaultModel
}

// GetWorkDir returns the working directory, considering request and default
func (c *ClientConfig) GetWorkDir(req *Request) string {
	if req != nil && req.WorkDir != "" {
		return req.WorkDir
	}
	return c.WorkDir
}
