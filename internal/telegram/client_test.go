package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebot/codexreview/pkg/errors"
)

type recordedCall struct {
	path string
	body map[string]any
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *[]recordedCall) {
	t.Helper()
	calls := &[]recordedCall{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		*calls = append(*calls, recordedCall{path: r.URL.Path, body: body})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return server, calls
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(ClientConfig{Token: "  tok  ", APIBaseURL: ""})
	assert.Equal(t, "tok", c.token)
	assert.Equal(t, DefaultAPIBaseURL, c.baseURL)
	assert.True(t, c.HasToken())
	assert.False(t, NewClient(ClientConfig{}).HasToken())
}

func TestSendMessage(t *testing.T) {
	server, calls := newTestServer(t, http.StatusOK, `{"ok":true,"result":{"message_id":557,"chat":{"id":-1002820582847}}}`)
	c := NewClient(ClientConfig{Token: "tok", APIBaseURL: server.URL + "/"})

	msg, err := c.SendMessage(context.Background(), SendMessageRequest{ChatID: "-100", Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, int64(557), msg.MessageID)
	require.Len(t, *calls, 1)
	assert.Equal(t, "/bottok/sendMessage", (*calls)[0].path)
	assert.Equal(t, "hello", (*calls)[0].body["text"])
	assert.NotContains(t, (*calls)[0].body, "message_thread_id")
}

func TestSendMessage_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		wantCode errors.ErrorCode
		wantMsg  string
	}{
		{"http status", http.StatusForbidden, `{"ok":false}`, errors.ErrCodeTelegramSendHTTP, "codex_review_telegram_send_http_403"},
		{"malformed body", http.StatusOK, `not json`, errors.ErrCodeTelegramSendFailed, ""},
		{"not ok", http.StatusOK, `{"ok":false,"description":"chat not found"}`, errors.ErrCodeTelegramSendFailed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newTestServer(t, tt.status, tt.response)
			c := NewClient(ClientConfig{Token: "tok", APIBaseURL: server.URL})

			_, err := c.SendMessage(context.Background(), SendMessageRequest{ChatID: "-100", Text: "x"})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.GetCode(err))
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, err.Error())
			}
		})
	}
}

func TestSendMessage_TokenMissing(t *testing.T) {
	_, err := NewClient(ClientConfig{}).SendMessage(context.Background(), SendMessageRequest{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeTelegramTokenMissing))
}

func TestAnswerCallbackQuery(t *testing.T) {
	server, calls := newTestServer(t, http.StatusOK, `{"ok":true,"result":true}`)
	c := NewClient(ClientConfig{Token: "tok", APIBaseURL: server.URL})

	require.NoError(t, c.AnswerCallbackQuery(context.Background(), "cb-1", "Task is started.", true))
	require.Len(t, *calls, 1)
	assert.Equal(t, "/bottok/answerCallbackQuery", (*calls)[0].path)
	assert.Equal(t, "cb-1", (*calls)[0].body["callback_query_id"])
	assert.Equal(t, true, (*calls)[0].body["show_alert"])
}

func TestEditMessageReplyMarkup(t *testing.T) {
	server, calls := newTestServer(t, http.StatusOK, `{"ok":true,"result":true}`)
	c := NewClient(ClientConfig{Token: "tok", APIBaseURL: server.URL})

	require.NoError(t, c.EditMessageReplyMarkup(context.Background(), -100, 557, EmptyKeyboard()))
	require.Len(t, *calls, 1)
	assert.Equal(t, "/bottok/editMessageReplyMarkup", (*calls)[0].path)
	assert.Equal(t, map[string]any{"inline_keyboard": []any{}}, (*calls)[0].body["reply_markup"])
}

func TestEditMessageReplyMarkup_HTTPError(t *testing.T) {
	server, _ := newTestServer(t, http.StatusBadRequest, `{"ok":false,"description":"message is not modified"}`)
	c := NewClient(ClientConfig{Token: "tok", APIBaseURL: server.URL})

	err := c.EditMessageReplyMarkup(context.Background(), -100, 557, EmptyKeyboard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
