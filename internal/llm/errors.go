package llm

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// ErrClientNotAvailable indicates the CLI tool is not available
	ErrClientNotAvailable = errors.New("client CLI tool not available")

	// ErrTimeout indicates the request timed out
	ErrTimeout = errors.New("request timeout")

	// ErrNonZeroExit indicates the CLI exited with a non-zero status
	ErrNonZeroExit = errors.New("non-zero exit status")
)

// ClientError represents an error from an LLM client
type ClientError struct {
	// Client is the name of the client that produced the error
	Client string

	// Operation is the operation that failed (e.g., "execute")
	Operation string

	// Reason is a machine-readable failure reason. When set it is the error text.
	Reason string

	// Message is the human-readable error message
	Message string

	// Err is the underlying error (if any)
	Err error
}

// Error implements the error interface
func (e *ClientError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s.%s] %s: %v", e.Client, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s.%s] %s", e.Client, e.Operation, e.Message)
}

// Unwrap returns the underlying error
func (e *ClientError) Unwrap() error {
	return e.Err
}

// NewClientError creates a new ClientError
func NewClientError(client, operation, message string, err error) *ClientError {
	return &ClientError{
		Client:    client,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// NewReasonError creates a ClientError whose text is the given reason
func NewReasonError(client, operation, reason string, err error) *ClientError {
	return &ClientError{
		Client:    client,
		Operation: operation,
		Reason:    reason,
		Message:   reason,
		Err:       err,
	}
}

// Reason returns the machine-readable reason of err, or its text.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) && clientErr.Reason != "" {
		return clientErr.Reason
	}
	return err.Error()
}
