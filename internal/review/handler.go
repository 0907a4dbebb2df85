// Package review implements the deferred Codex review job: claim a due
// task, summarize it with the review agent, annotate its issue, post an
// approval card and record the outcome.
package review

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/voicebot/codexreview/internal/model"
	"github.com/voicebot/codexreview/internal/prompt"
	"github.com/voicebot/codexreview/internal/store"
	"github.com/voicebot/codexreview/internal/telegram"
	"github.com/voicebot/codexreview/pkg/errors"
	"github.com/voicebot/codexreview/pkg/idgen"
	"github.com/voicebot/codexreview/pkg/logger"
	"github.com/voicebot/codexreview/pkg/telemetry"
)

// DefaultRetryDelay is the wait before a failed task is eligible again
const DefaultRetryDelay = 5 * time.Minute

// ReasonNotDue is reported when the claim did not match
const ReasonNotDue = "not_due_or_already_processed"

// JobData is the job payload
type JobData struct {
	TaskID string `json:"task_id"`
	JobID  string `json:"job_id,omitempty"`
}

// Result is the job outcome
type Result struct {
	OK      bool   `json:"ok"`
	TaskID  string `json:"task_id,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`

	Summary           string `json:"summary,omitempty"`
	Source            string `json:"source,omitempty"`
	IssueID           string `json:"issue_id,omitempty"`
	IssueNoteAppended *bool  `json:"issue_note_appended,omitempty"`
	ApprovalCardSent  *bool  `json:"approval_card_sent,omitempty"`
}

// Outcome maps the result to a metrics outcome label
func (r Result) Outcome() string {
	switch {
	case r.Skipped:
		return telemetry.OutcomeSkipped
	case r.Error == string(errors.ErrCodeInvalidTaskID):
		return telemetry.OutcomeInvalid
	case !r.OK:
		return telemetry.OutcomeFailed
	default:
		return telemetry.OutcomeCompleted
	}
}

// CardLoader provides the prompt card for a job
type CardLoader interface {
	Load() prompt.Card
}

// Notifier posts approval cards
type Notifier interface {
	SendApprovalCard(ctx context.Context, in telegram.CardInput) (telegram.CardResult, error)
}

// Handler runs review jobs. It holds no per-job state and is safe for
// concurrent use; the store claim is the only synchronization.
type Handler struct {
	tasks      store.TaskStore
	cards      CardLoader
	issues     IssueTracker
	annotator  *Annotator
	runner     Runner
	notifier   Notifier
	retryDelay time.Duration
	now        func() time.Time
	metrics    *telemetry.Metrics
}

// Deps are the Handler collaborators
type Deps struct {
	Tasks      store.TaskStore
	Cards      CardLoader
	Issues     IssueTracker
	Runner     Runner
	Notifier   Notifier
	RetryDelay time.Duration
	Now        func() time.Time
	Metrics    *telemetry.Metrics
}

// NewHandler creates a Handler
func NewHandler(deps Deps) *Handler {
	h := &Handler{
		tasks:      deps.Tasks,
		cards:      deps.Cards,
		issues:     deps.Issues,
		annotator:  NewAnnotator(deps.Issues),
		runner:     deps.Runner,
		notifier:   deps.Notifier,
		retryDelay: deps.RetryDelay,
		now:        deps.Now,
		metrics:    deps.Metrics,
	}
	if h.retryDelay <= 0 {
		h.retryDelay = DefaultRetryDelay
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.metrics == nil {
		h.metrics = telemetry.GetMetrics()
	}
	if h.cards == nil {
		h.cards = prompt.NewLoader("")
	}
	return h
}

// Handle runs one job. The returned error reports store failures that left
// no trace on the task; job failures are reported in the Result.
func (h *Handler) Handle(ctx context.Context, job JobData) (Result, error) {
	taskID := strings.TrimSpace(job.TaskID)
	jobID := strings.TrimSpace(job.JobID)

	ctx, span := telemetry.StartSpan(ctx, "review.handle", telemetry.WithJobAttributes(taskID, jobID))
	defer span.End()

	started := time.Now()
	h.metrics.RecordJobStarted(ctx)

	result, err := h.handle(ctx, taskID, jobID)

	h.metrics.RecordJobFinished(ctx, result.Outcome(), time.Since(started).Seconds())
	span.SetAttributes(telemetry.AttrOutcome.String(result.Outcome()))
	if err != nil {
		telemetry.SetSpanError(span, err)
	} else {
		telemetry.SetSpanOK(span)
	}
	return result, err
}

func (h *Handler) handle(ctx context.Context, taskID, jobID string) (Result, error) {
	if !idgen.IsValid(taskID) {
		return Result{OK: false, Error: string(errors.ErrCodeInvalidTaskID)}, nil
	}

	log := logger.ForTask(taskID, jobID)

	claimed, err := h.tasks.ClaimForReview(ctx, taskID, jobID, h.now())
	if err != nil {
		return Result{OK: false, TaskID: taskID, Error: string(errors.ErrCodeReviewFailed)}, err
	}
	if !claimed {
		log.Debug("Task not claimed", zap.String("reason", ReasonNotDue))
		return Result{OK: true, TaskID: taskID, Skipped: true, Reason: ReasonNotDue}, nil
	}

	// Bookkeeping writes must land even when the job context is canceled.
	recordCtx := context.WithoutCancel(ctx)

	task, err := h.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeNotFound) {
			reason := string(errors.ErrCodeTaskNotFoundAfterClaim)
			if relErr := h.tasks.ReleaseMissingClaim(recordCtx, taskID, reason, h.now()); relErr != nil {
				log.Error("Failed to release claim of missing task", zap.Error(relErr))
			}
			log.Warn("Task disappeared after claim")
			return Result{OK: false, TaskID: taskID, Error: reason}, nil
		}
		return h.fail(recordCtx, log, taskID, err)
	}

	result, err := h.review(ctx, log, task, jobID)
	if err != nil {
		return h.fail(recordCtx, log, taskID, err)
	}
	return result, nil
}

// review runs the pipeline on a claimed task and records completion.
func (h *Handler) review(ctx context.Context, log *zap.Logger, task *model.Task, jobID string) (Result, error) {
	issueID := ResolveIssueID(task)
	var issue map[string]any
	if issueID != "" {
		issue = LoadIssue(ctx, h.issues, issueID)
	} else {
		log.Info("No issue id on task, annotation and approval card skipped")
	}

	card := h.cards.Load()
	text, err := prompt.BuildReviewPrompt(card, task, issue)
	if err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeInternal, "failed to build review prompt", err)
	}

	summary, source := h.summarize(ctx, log, RunInput{
		Task:           task,
		JobID:          jobID,
		Issue:          issue,
		Prompt:         text,
		PromptCardPath: card.Path,
	})
	if summary == "" {
		return Result{}, errors.Reason(errors.ErrCodeReviewEmptySummary)
	}

	completion := store.Completion{Summary: summary, Source: source, IssueID: issueID}
	var noteAppended, cardSent bool

	if issueID != "" {
		appendResult, err := h.annotator.Append(ctx, AppendInput{
			IssueID: issueID,
			TaskID:  task.ID,
			Summary: summary,
			Source:  source,
			Issue:   issue,
		})
		if err != nil {
			h.metrics.RecordIssueNote(ctx, "failed")
			return Result{}, err
		}
		noteAppended = appendResult.Appended
		if noteAppended {
			h.metrics.RecordIssueNote(ctx, "appended")
		} else {
			h.metrics.RecordIssueNote(ctx, "skipped")
		}
		completion.NoteMarker = appendResult.Marker
		completion.NoteAppended = noteAppended

		sent, err := h.notifier.SendApprovalCard(ctx, telegram.CardInput{
			TaskID:   task.ID,
			TaskName: task.Name,
			IssueID:  issueID,
			Summary:  summary,
		})
		h.metrics.RecordApprovalCard(ctx, err == nil)
		if err != nil {
			return Result{}, err
		}
		cardSent = true
		sentAt := h.now()
		messageID := sent.MessageID
		completion.CardChatID = sent.ChatID
		completion.CardThreadID = sent.ThreadID
		completion.CardMessageID = &messageID
		completion.CardSentAt = &sentAt
	}

	completion.CompletedAt = h.now()
	if err := h.tasks.CompleteReview(context.WithoutCancel(ctx), task.ID, completion); err != nil {
		return Result{}, err
	}

	log.Info("Deferred review completed",
		zap.String(logger.FieldIssueID, issueID),
		zap.String("source", source),
		zap.Int("summary_chars", len([]rune(summary))),
		zap.Bool("issue_note_appended", noteAppended),
		zap.Bool("approval_card_sent", cardSent),
	)

	return Result{
		OK:                true,
		TaskID:            task.ID,
		Summary:           summary,
		Source:            source,
		IssueID:           issueID,
		IssueNoteAppended: &noteAppended,
		ApprovalCardSent:  &cardSent,
	}, nil
}

// summarize asks the runner for a summary and falls back to the task fields
// when it fails.
func (h *Handler) summarize(ctx context.Context, log *zap.Logger, in RunInput) (string, string) {
	ctx, span := telemetry.StartSpan(ctx, "review.run")
	defer span.End()

	out, err := h.runner.Run(ctx, in)
	summary := ""
	if err == nil {
		summary = NormalizeSummary(out.Summary)
	}
	if err == nil && summary == "" {
		err = errors.Reason(errors.ErrCodeReviewEmptySummary)
	}
	h.metrics.RecordRunnerExecution(ctx, runnerName(h.runner), err == nil)

	if err != nil {
		log.Warn("Review runner failed, using fallback summary",
			zap.String(logger.FieldIssueID, ResolveIssueID(in.Task)),
			zap.Error(err),
		)
		telemetry.SetSpanError(span, err)
		span.SetAttributes(telemetry.AttrSummarySource.String(model.SummarySourceFallbackFields))
		return FallbackSummary(in.Task), model.SummarySourceFallbackFields
	}

	source := strings.TrimSpace(out.Source)
	if source == "" {
		source = model.SummarySourceCodexCLI
	}
	span.SetAttributes(telemetry.AttrSummarySource.String(source), attribute.Int("summary.chars", len([]rune(summary))))
	telemetry.SetSpanOK(span)
	return summary, source
}

// fail records a failed attempt and schedules the retry.
func (h *Handler) fail(ctx context.Context, log *zap.Logger, taskID string, cause error) (Result, error) {
	failedAt := h.now()
	errText := cause.Error()
	result := Result{OK: false, TaskID: taskID, Error: string(errors.ErrCodeReviewFailed)}

	if err := h.tasks.FailReview(ctx, taskID, errText, failedAt, h.retryDelay); err != nil {
		log.Error("Failed to record review failure", zap.Error(err), zap.String("cause", errText))
		return result, err
	}

	log.Error("Deferred review failed",
		zap.String("error", errText),
		zap.Time("retry_at", failedAt.Add(h.retryDelay).UTC()),
	)
	return result, nil
}

func runnerName(r Runner) string {
	if named, ok := r.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "custom"
}
