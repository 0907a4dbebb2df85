package telegram

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/voicebot/codexreview/pkg/errors"
	"github.com/voicebot/codexreview/pkg/logger"
)

// Callback actions carried by approval card buttons
const (
	ActionStart  = "start"
	ActionCancel = "cancel"

	callbackPrefix = "cdr"
)

// CallbackData encodes an approval card button payload
func CallbackData(action, taskID string) string {
	return callbackPrefix + ":" + action + ":" + taskID
}

// CardInput describes an approval card
type CardInput struct {
	TaskID   string
	TaskName string
	IssueID  string
	Summary  string
}

// CardResult describes a sent approval card
type CardResult struct {
	ChatID         string
	ThreadID       *int64
	MessageID      int64
	CallbackStart  string
	CallbackCancel string
}

// NotifierConfig holds the approval card target
type NotifierConfig struct {
	ChatID   string
	ThreadID int64
}

// Notifier sends approval cards to the review chat
type Notifier struct {
	client *Client
	cfg    NotifierConfig
}

// NewNotifier creates a notifier posting through client
func NewNotifier(client *Client, cfg NotifierConfig) *Notifier {
	cfg.ChatID = strings.TrimSpace(cfg.ChatID)
	return &Notifier{client: client, cfg: cfg}
}

// SendApprovalCard posts the summary with start and cancel buttons.
// Every failure is returned to the caller.
func (n *Notifier) SendApprovalCard(ctx context.Context, in CardInput) (CardResult, error) {
	if !n.client.HasToken() {
		return CardResult{}, errors.Reason(errors.ErrCodeTelegramTokenMissing)
	}
	if n.cfg.ChatID == "" {
		return CardResult{}, errors.Reason(errors.ErrCodeTelegramChatIDMissing)
	}

	result := CardResult{
		ChatID:         n.cfg.ChatID,
		CallbackStart:  CallbackData(ActionStart, in.TaskID),
		CallbackCancel: CallbackData(ActionCancel, in.TaskID),
	}
	req := SendMessageRequest{
		ChatID: n.cfg.ChatID,
		Text:   FormatCardText(in),
		ReplyMarkup: &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{{
			{Text: "Start", CallbackData: result.CallbackStart},
			{Text: "Cancel", CallbackData: result.CallbackCancel},
		}}},
	}
	if n.cfg.ThreadID > 0 {
		thread := n.cfg.ThreadID
		req.MessageThreadID = thread
		result.ThreadID = &thread
	}

	msg, err := n.client.SendMessage(ctx, req)
	if err != nil {
		return CardResult{}, err
	}
	result.MessageID = msg.MessageID

	logger.Info("Approval card sent",
		zap.String(logger.FieldTaskID, in.TaskID),
		zap.String(logger.FieldIssueID, in.IssueID),
		zap.String("chat_id", result.ChatID),
		zap.Int64("message_id", result.MessageID),
	)
	return result, nil
}

// FormatCardText renders the approval card body
func FormatCardText(in CardInput) string {
	var sb strings.Builder
	sb.WriteString("Codex deferred review\n")
	if name := strings.TrimSpace(in.TaskName); name != "" {
		fmt.Fprintf(&sb, "Task: %s\n", name)
	}
	if in.IssueID != "" {
		fmt.Fprintf(&sb, "Issue: %s\n", in.IssueID)
	}
	sb.WriteString("\n")
	sb.WriteString(in.Summary)
	return sb.String()
}
