package llm

import (
	"time"
)

// Request represents a request to the LLM client
type Request struct {
	// Prompt is written to the CLI's stdin
	Prompt string

	// Model overrides the configured default model
	Model string

	// WorkDir overrides the configured working directory
	WorkDir string

	// Options contains optional configuration
	Options *RequestOptions
}

// RequestOptions contains optional request configuration
type RequestOptions struct {
	// Timeout is the maximum duration for the request
	Timeout time.Duration

	// Metadata is carried into logs and copied to the response
	Metadata map[string]string
}

// Response represents the response from an LLM client
type Response struct {
	// Content is the agent's final message
	Content string

	// Model is the model that was requested, empty when the CLI default applied
	Model string

	// Duration is the wall time of the CLI run
	Duration time.Duration

	Metadata map[string]string
}

// NewRequest creates a new request with the given prompt
func NewRequest(prompt string) *Request {
	return &Request{Prompt: prompt}
}

// WithModel sets the model for the request
func (r *Request) WithModel(model string) *Request {
	r.Model = model
	return r
}

// WithWorkDir sets the working directory for the request
func (r *Request) WithWorkDir(workDir string) *Request {
	r.WorkDir = workDir
	return r
}

// WithTimeout sets the request timeout
func (r *Request) WithTimeout(timeout time.Duration) *Request {
	r.options().Timeout = timeout
	return r
}

// WithMetadata attaches a metadata key
func (r *Request) WithMetadata(key, value string) *Request {
	opts := r.options()
	if opts.Metadata == nil {
		opts.Metadata = make(map[string]string)
	}
	opts.Metadata[key] = value
	return r
}

func (r *Request) options() *RequestOptions {
	if r.Options == nil {
		r.Options = &RequestOptions{}
	}
	return r.Options
}

// GetTimeout returns the timeout, using the default if not specified
func (r *Request) GetTimeout(defaultTimeout time.Duration) time.Duration {
	if r.Options != nil && r.Options.Timeout > 0 {
		return r.Options.Timeout
	}
	return defaultTimeout
}

// GetMetadata returns a metadata value or an empty string
func (r *Request) GetMetadata(key string) string {
	if r.Options == nil || r.Options.Metadata == nil {
		return ""
	}
	return r.Options.Metadata[key]
}

// CopyMetadata copies request metadata into the response
func (r *Request) CopyMetadata(resp *Response) {
	if resp == nil || r.Options == nil || len(r.Options.Metadata) == 0 {
		return
	}
	if resp.Metadata == nil {
		resp.Metadata = make(map[string]string, len(r.Options.Metadata))
	}
	for k, v := range r.Options.Metadata {
		resp.Metadata[k] = v
	}
}
