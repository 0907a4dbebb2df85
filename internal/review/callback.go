package review

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voicebot/codexreview/internal/beads"
	"github.com/voicebot/codexreview/internal/model"
	"github.com/voicebot/codexreview/internal/store"
	"github.com/voicebot/codexreview/pkg/errors"
	"github.com/voicebot/codexreview/pkg/idgen"
	"github.com/voicebot/codexreview/pkg/logger"
	"github.com/voicebot/codexreview/pkg/telemetry"
)

var callbackDataPattern = regexp.MustCompile(`(?i)^cdr:(start|cancel):([0-9a-v]{20})$`)

// CancelNote is appended to the issue when the operator cancels
const CancelNote = "canceled by user"

// Callback error codes
const (
	CallbackErrTaskNotFound       = "task_not_found"
	CallbackErrIssueIDMissing     = "issue_id_missing"
	CallbackErrTaskUpdateNotFound = "task_update_not_found"
	CallbackErrActionFailed       = "callback_action_failed"
)

// ParsedCallback is a decoded approval button payload
type ParsedCallback struct {
	Action model.ReviewDecision
	TaskID string
}

// ParseCallbackData decodes cdr:<action>:<task id>. ok is false for anything else.
func ParseCallbackData(data string) (ParsedCallback, bool) {
	match := callbackDataPattern.FindStringSubmatch(strings.TrimSpace(data))
	if match == nil {
		return ParsedCallback{}, false
	}
	taskID := strings.ToLower(match[2])
	if !idgen.IsValid(taskID) {
		return ParsedCallback{}, false
	}
	return ParsedCallback{
		Action: model.ReviewDecision(strings.ToLower(match[1])),
		TaskID: taskID,
	}, true
}

// CallbackInput is a button press
type CallbackInput struct {
	Data           string
	TelegramUserID string
}

// CallbackResult tells the bot how to answer the button press
type CallbackResult struct {
	Handled        bool   `json:"handled"`
	OK             bool   `json:"ok"`
	Action         string `json:"action,omitempty"`
	TaskID         string `json:"task_id,omitempty"`
	Text           string `json:"text"`
	Alert          bool   `json:"alert,omitempty"`
	RemoveKeyboard bool   `json:"remove_keyboard,omitempty"`
	Error          string `json:"error,omitempty"`
}

// CallbackHandler applies start and cancel decisions from approval cards
type CallbackHandler struct {
	tasks   store.TaskStore
	issues  IssueTracker
	now     func() time.Time
	metrics *telemetry.Metrics
}

// NewCallbackHandler creates a CallbackHandler
func NewCallbackHandler(tasks store.TaskStore, issues IssueTracker, now func() time.Time) *CallbackHandler {
	if now == nil {
		now = time.Now
	}
	return &CallbackHandler{tasks: tasks, issues: issues, now: now, metrics: telemetry.GetMetrics()}
}

// Handle applies the decision encoded in the callback data.
func (h *CallbackHandler) Handle(ctx context.Context, in CallbackInput) CallbackResult {
	parsed, ok := ParseCallbackData(in.Data)
	if !ok {
		return CallbackResult{}
	}

	result := h.handle(ctx, parsed, strings.TrimSpace(in.TelegramUserID))
	h.metrics.RecordCallback(ctx, string(parsed.Action), result.OK)
	if !result.OK {
		logger.Warn("Approval callback failed",
			zap.String(logger.FieldTaskID, parsed.TaskID),
			zap.String("action", string(parsed.Action)),
			zap.String("error", result.Error),
			zap.String("text", result.Text),
		)
	}
	return result
}

func (h *CallbackHandler) handle(ctx context.Context, parsed ParsedCallback, userID string) CallbackResult {
	base := CallbackResult{Handled: true, Action: string(parsed.Action), TaskID: parsed.TaskID}
	failed := func(text, code string) CallbackResult {
		r := base
		r.Text = text
		r.Alert = true
		r.Error = code
		return r
	}
	done := func(text string) CallbackResult {
		r := base
		r.OK = true
		r.Text = text
		r.RemoveKeyboard = true
		return r
	}

	task, err := h.tasks.FindCodexTask(ctx, parsed.TaskID)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeNotFound) {
			return failed("Task not found.", CallbackErrTaskNotFound)
		}
		return failed("Failed to apply action: "+err.Error(), CallbackErrActionFailed)
	}

	target := targetState(parsed.Action)
	if strings.EqualFold(strings.TrimSpace(string(task.ReviewState)), string(target)) {
		if parsed.Action == model.ReviewDecisionStart {
			return done("Task is already started.")
		}
		return done("Task is already canceled.")
	}

	issueID := ResolveIssueID(task)
	if issueID == "" {
		return failed("Issue ID is missing for this task.", CallbackErrIssueIDMissing)
	}

	if parsed.Action == model.ReviewDecisionStart {
		err = h.issues.UpdateStatus(ctx, issueID, beads.StatusOpen, "")
	} else {
		err = h.issues.UpdateStatus(ctx, issueID, beads.StatusClosed, CancelNote)
	}
	if err != nil {
		return failed("Failed to apply action: "+err.Error(), CallbackErrActionFailed)
	}

	applied, err := h.tasks.ApplyDecision(ctx, parsed.TaskID, store.Decision{
		Action:         parsed.Action,
		State:          target,
		DecidedAt:      h.now(),
		TelegramUserID: userID,
	})
	if err != nil {
		return failed("Failed to apply action: "+err.Error(), CallbackErrActionFailed)
	}
	if !applied {
		return failed("Task update failed: task was not found.", CallbackErrTaskUpdateNotFound)
	}

	logger.Info("Approval decision applied",
		zap.String(logger.FieldTaskID, parsed.TaskID),
		zap.String(logger.FieldIssueID, issueID),
		zap.String("action", string(parsed.Action)),
		zap.String("telegram_user_id", userID),
	)
	if parsed.Action == model.ReviewDecisionStart {
		return done("Task is started.")
	}
	return done("Task is canceled.")
}

func targetState(action model.ReviewDecision) model.ReviewState {
	if action == model.ReviewDecisionStart {
		return model.ReviewStateDone
	}
	return model.ReviewStateCanceled
}
