// Package telegram is a small Telegram Bot API client used to post review
// approval cards and answer their button presses.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voicebot/codexreview/pkg/errors"
	"github.com/voicebot/codexreview/pkg/logger"
)

// DefaultAPIBaseURL is the public Bot API endpoint
const DefaultAPIBaseURL = "https://api.telegram.org"

const maxResponseBytes = 64 * 1024

// ClientConfig holds Bot API settings
type ClientConfig struct {
	Token      string
	APIBaseURL string
	Timeout    time.Duration
}

// Client calls Bot API methods
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a Bot API client
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		token:   strings.TrimSpace(cfg.Token),
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// HasToken reports whether a bot token is configured
func (c *Client) HasToken() bool {
	return c.token != ""
}

// apiResponse is the Bot API response envelope
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// callError classifies a failed call so each method can map it to reason codes
type callError struct {
	status int
	body   string
	err    error
}

func (e *callError) Error() string {
	if e.status != 0 {
		return fmt.Sprintf("telegram returned status %d: %s", e.status, e.body)
	}
	return e.err.Error()
}

func (e *callError) Unwrap() error { return e.err }

// call posts payload to method and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, payload, out any) error {
	if c.token == "" {
		return errors.Reason(errors.ErrCodeTelegramTokenMissing)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &callError{err: fmt.Errorf("failed to marshal %s payload: %w", method, err)}
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &callError{err: fmt.Errorf("failed to create %s request: %w", method, err)}
	}
	req.Header.Set("Content-Type", "application/json")

	logger.Debug("Calling Telegram Bot API", zap.String("method", method))

	resp, err := c.http.Do(req)
	if err != nil {
		return &callError{err: fmt.Errorf("failed to send %s request: %w", method, err)}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &callError{status: resp.StatusCode, body: string(respBody)}
	}

	var envelope apiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return &callError{err: fmt.Errorf("failed to decode %s response: %w", method, err)}
	}
	if !envelope.OK {
		return &callError{err: fmt.Errorf("%s not ok: %s", method, envelope.Description)}
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return &callError{err: fmt.Errorf("failed to decode %s result: %w", method, err)}
		}
	}
	return nil
}

// SendMessage posts a message. Non-2xx responses map to
// codex_review_telegram_send_http_<status>; transport failures, malformed
// bodies and ok:false map to codex_review_telegram_send_failed.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	var msg Message
	if err := c.call(ctx, "sendMessage", req, &msg); err != nil {
		return nil, sendError(err)
	}
	return &msg, nil
}

func sendError(err error) error {
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	ce, ok := err.(*callError)
	if ok && ce.status != 0 {
		return errors.Reasonf(errors.ErrCodeTelegramSendHTTP, ce.status)
	}
	return errors.Wrap(errors.ErrCodeTelegramSendFailed, string(errors.ErrCodeTelegramSendFailed), err)
}

// AnswerCallbackQuery acknowledges a button press with a toast or alert
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string, showAlert bool) error {
	return c.call(ctx, "answerCallbackQuery", answerCallbackQueryRequest{
		CallbackQueryID: callbackQueryID,
		Text:            text,
		ShowAlert:       showAlert,
	}, nil)
}

// EditMessageReplyMarkup replaces the inline keyboard of a message
func (c *Client) EditMessageReplyMarkup(ctx context.Context, chatID, messageID int64, markup InlineKeyboardMarkup) error {
	return c.call(ctx, "editMessageReplyMarkup", editMessageReplyMarkupRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		ReplyMarkup: markup,
	}, nil)
}
