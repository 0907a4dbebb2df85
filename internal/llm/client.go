// Package llm provides a unified interface for the CLI coding agents that
// write task summaries. Concrete clients register themselves by name.
package llm

import (
	"context"
)

// Client defines the interface for LLM CLI clients.
type Client interface {
	// Name returns the client identifier (e.g., "codex", "mock")
	Name() string

	// Available checks if the client CLI tool is available for use
	Available() bool

	// GetConfig returns the client configuration
	GetConfig() *ClientConfig

	// Execute sends the prompt and returns the agent's final message.
	Execute(ctx context.Context, req *Request) (*Response, error)

	// Close releases any resources held by the client
	Close() error
}
