package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/voicebot/codexreview/internal/review"
	"github.com/voicebot/codexreview/internal/telegram"
	"github.com/voicebot/codexreview/pkg/logger"
)

// CallbackProcessor applies approval-card button presses
type CallbackProcessor interface {
	Handle(ctx context.Context, in review.CallbackInput) review.CallbackResult
}

// BotAPI is the part of the Telegram Bot API the webhook answers with
type BotAPI interface {
	AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string, showAlert bool) error
	EditMessageReplyMarkup(ctx context.Context, chatID, messageID int64, markup telegram.InlineKeyboardMarkup) error
}

// TelegramHandler receives bot webhook updates
type TelegramHandler struct {
	callbacks CallbackProcessor
	bot       BotAPI
}

// NewTelegramHandler creates a webhook handler
func NewTelegramHandler(callbacks CallbackProcessor, bot BotAPI) *TelegramHandler {
	return &TelegramHandler{callbacks: callbacks, bot: bot}
}

// HandleUpdate handles POST /api/v1/telegram/webhook.
// Every parsed update is acknowledged with 200, ours or not.
func (h *TelegramHandler) HandleUpdate(c *gin.Context) {
	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		logger.Warn("Invalid telegram update payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"ok": false})
		return
	}

	query := update.CallbackQuery
	if query == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true, "handled": false})
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	result := h.callbacks.Handle(ctx, review.CallbackInput{
		Data:           query.Data,
		TelegramUserID: strconv.FormatInt(query.From.ID, 10),
	})
	if !result.Handled {
		c.JSON(http.StatusOK, gin.H{"ok": true, "handled": false})
		return
	}

	h.answer(ctx, query, result)
	c.JSON(http.StatusOK, result)
}

func (h *TelegramHandler) answer(ctx context.Context, query *telegram.CallbackQuery, result review.CallbackResult) {
	log := logger.With(
		zap.String(logger.FieldTaskID, result.TaskID),
		zap.String("callback_query_id", query.ID),
	)

	if err := h.bot.AnswerCallbackQuery(ctx, query.ID, result.Text, result.Alert); err != nil {
		log.Warn("Failed to answer callback query", zap.Error(err))
	}

	if !result.RemoveKeyboard || query.Message == nil {
		return
	}
	if err := h.bot.EditMessageReplyMarkup(ctx, query.Message.Chat.ID, query.Message.MessageID, telegram.EmptyKeyboard()); err != nil {
		log.Warn("Failed to remove approval card keyboard", zap.Error(err))
	}
}
