// Package errors provides custom error types for the application.
// Errors carry a code so that job results, task records and API responses
// can report a stable machine-readable reason.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents application error codes
type ErrorCode string

// General error codes
const (
	ErrCodeInternal     ErrorCode = "E1000"
	ErrCodeValidation   ErrorCode = "E1001"
	ErrCodeNotFound     ErrorCode = "E1002"
	ErrCodeConflict     ErrorCode = "E1003"
	ErrCodeUnauthorized ErrorCode = "E1005"

	// Database errors (5xxx)
	ErrCodeDBConnection ErrorCode = "E5001"
	ErrCodeDBQuery      ErrorCode = "E5002"
	ErrCodeDBMigration  ErrorCode = "E5003"

	// Configuration errors (6xxx)
	ErrCodeConfigNotFound ErrorCode = "E6001"
	ErrCodeConfigInvalid  ErrorCode = "E6002"
	ErrCodeConfigParse    ErrorCode = "E6003"
)

// Job reason codes. Their values are persisted to task records and returned
// in job results, so they must never change.
const (
	ErrCodeInvalidTaskID          ErrorCode = "invalid_task_id"
	ErrCodeTaskNotFoundAfterClaim ErrorCode = "task_not_found_after_claim"
	ErrCodeReviewFailed           ErrorCode = "codex_deferred_review_failed"

	ErrCodeReviewTimeout      ErrorCode = "codex_review_timeout"
	ErrCodeReviewEmptySummary ErrorCode = "codex_review_empty_summary"
	ErrCodeReviewExit         ErrorCode = "codex_review_exit_code"

	ErrCodeBDUpdateTimeout ErrorCode = "codex_review_bd_update_timeout"
	ErrCodeBDUpdateExit    ErrorCode = "codex_review_bd_update_exit_code"
	ErrCodeBDShowTimeout   ErrorCode = "codex_review_bd_show_timeout"
	ErrCodeBDShowExit      ErrorCode = "codex_review_bd_show_exit_code"

	ErrCodeTelegramTokenMissing  ErrorCode = "codex_review_telegram_token_missing"
	ErrCodeTelegramChatIDMissing ErrorCode = "codex_review_telegram_chat_id_missing"
	ErrCodeTelegramSendHTTP      ErrorCode = "codex_review_telegram_send_http"
	ErrCodeTelegramSendFailed    ErrorCode = "codex_review_telegram_send_failed"

	ErrCodeCallbackBDTimeout ErrorCode = "codex_review_callback_bd_timeout"
	ErrCodeCallbackBDExit    ErrorCode = "codex_review_callback_bd_exit_code"

	ErrCodeClaimAbandoned ErrorCode = "codex_review_claim_abandoned"
)

// Exit codes for application startup failures
const (
	// ExitCodeConfigValidation indicates configuration validation failure
	ExitCodeConfigValidation = 2
)

// AppError represents an application-level error with code and context
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

// Error implements the error interface.
// Job reason errors render their message only, because the message is the
// value persisted as last_runner_error.
func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// HTTPStatus returns the HTTP status code for the error
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeNotFound, ErrCodeTaskNotFoundAfterClaim:
		return http.StatusNotFound
	case ErrCodeValidation, ErrCodeInvalidTaskID:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeReviewTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Reason creates an AppError whose message is the code itself.
func Reason(code ErrorCode) *AppError {
	return &AppError{Code: code, Message: string(code)}
}

// Reasonf creates an AppError whose message is the code followed by a suffix,
// e.g. codex_review_exit_code_2.
func Reasonf(code ErrorCode, suffix any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf("%s_%v", code, suffix)}
}

// Wrap wraps an existing error with AppError
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrInternal creates an internal server error
func ErrInternal(message string, err error) *AppError {
	return Wrap(ErrCodeInternal, message, err)
}

// ErrValidation creates a validation error
func ErrValidation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// ErrNotFound creates a not found error
func ErrNotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

// ErrUnauthorized creates an unauthorized error
func ErrUnauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

// AsAppError attempts to find an AppError in the error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the code of the first AppError in the chain, or ErrCodeInternal.
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}
