package telegram

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebot/codexreview/pkg/errors"
)

const testTaskID = "cnkofmsq2oga1sse1l10"

func TestCallbackData(t *testing.T) {
	assert.Equal(t, "cdr:start:"+testTaskID, CallbackData(ActionStart, testTaskID))
	assert.Equal(t, "cdr:cancel:"+testTaskID, CallbackData(ActionCancel, testTaskID))
}

func TestSendApprovalCard(t *testing.T) {
	server, calls := newTestServer(t, http.StatusOK, `{"ok":true,"result":{"message_id":557,"chat":{"id":-1002820582847}}}`)
	n := NewNotifier(
		NewClient(ClientConfig{Token: "tok", APIBaseURL: server.URL}),
		NotifierConfig{ChatID: "-1002820582847", ThreadID: 11091},
	)

	result, err := n.SendApprovalCard(context.Background(), CardInput{
		TaskID:   testTaskID,
		TaskName: "Prepare release note",
		IssueID:  "copilot-ab12",
		Summary:  "Fixes login bug.",
	})
	require.NoError(t, err)
	assert.Equal(t, "-1002820582847", result.ChatID)
	require.NotNil(t, result.ThreadID)
	assert.Equal(t, int64(11091), *result.ThreadID)
	assert.Equal(t, int64(557), result.MessageID)
	assert.Equal(t, "cdr:start:"+testTaskID, result.CallbackStart)

	require.Len(t, *calls, 1)
	body := (*calls)[0].body
	assert.Equal(t, "-1002820582847", body["chat_id"])
	assert.Equal(t, float64(11091), body["message_thread_id"])
	assert.Equal(t, "Codex deferred review\nTask: Prepare release note\nIssue: copilot-ab12\n\nFixes login bug.", body["text"])
	assert.Equal(t, map[string]any{"inline_keyboard": []any{[]any{
		map[string]any{"text": "Start", "callback_data": "cdr:start:" + testTaskID},
		map[string]any{"text": "Cancel", "callback_data": "cdr:cancel:" + testTaskID},
	}}}, body["reply_markup"])
}

func TestSendApprovalCard_NoThread(t *testing.T) {
	server, calls := newTestServer(t, http.StatusOK, `{"ok":true,"result":{"message_id":1,"chat":{"id":5}}}`)
	n := NewNotifier(NewClient(ClientConfig{Token: "tok", APIBaseURL: server.URL}), NotifierConfig{ChatID: "5"})

	result, err := n.SendApprovalCard(context.Background(), CardInput{TaskID: testTaskID, Summary: "s"})
	require.NoError(t, err)
	assert.Nil(t, result.ThreadID)
	assert.NotContains(t, (*calls)[0].body, "message_thread_id")
}

func TestSendApprovalCard_ConfigErrors(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		chatID   string
		wantCode errors.ErrorCode
	}{
		{"token missing", "", "-100", errors.ErrCodeTelegramTokenMissing},
		{"chat id missing", "tok", "  ", errors.ErrCodeTelegramChatIDMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNotifier(NewClient(ClientConfig{Token: tt.token}), NotifierConfig{ChatID: tt.chatID})
			_, err := n.SendApprovalCard(context.Background(), CardInput{TaskID: testTaskID})
			require.Error(t, err)
			assert.Equal(t, string(tt.wantCode), err.Error())
		})
	}
}

func TestSendApprovalCard_HTTPFailure(t *testing.T) {
	server, _ := newTestServer(t, http.StatusBadGateway, `bad gateway`)
	n := NewNotifier(NewClient(ClientConfig{Token: "tok", APIBaseURL: server.URL}), NotifierConfig{ChatID: "-100"})

	_, err := n.SendApprovalCard(context.Background(), CardInput{TaskID: testTaskID})
	require.Error(t, err)
	assert.Equal(t, "codex_review_telegram_send_http_502", err.Error())
}

func TestFormatCardText(t *testing.T) {
	assert.Equal(t, "Codex deferred review\n\nOnly summary", FormatCardText(CardInput{Summary: "Only summary"}))
}
