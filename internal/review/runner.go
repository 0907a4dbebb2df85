package review

import (
	"context"

	"go.uber.org/zap"

	"github.com/voicebot/codexreview/internal/llm"
	"github.com/voicebot/codexreview/internal/model"
	"github.com/voicebot/codexreview/pkg/errors"
	"github.com/voicebot/codexreview/pkg/logger"
)

// RunInput is what a review runner receives
type RunInput struct {
	Task           *model.Task
	JobID          string
	Issue          map[string]any
	Prompt         string
	PromptCardPath string
}

// RunOutput is a generated summary and its source tag
type RunOutput struct {
	Summary string
	Source  string
}

// Runner produces a review summary for a task
type Runner interface {
	Run(ctx context.Context, in RunInput) (RunOutput, error)
}

// CodexRunner runs the review through an agent CLI client
type CodexRunner struct {
	client llm.Client
}

// NewCodexRunner creates a runner over client
func NewCodexRunner(client llm.Client) *CodexRunner {
	return &CodexRunner{client: client}
}

// Run sends the prompt and turns the agent's final message into a summary.
func (r *CodexRunner) Run(ctx context.Context, in RunInput) (RunOutput, error) {
	req := llm.NewRequest(in.Prompt)
	if in.Task != nil {
		req.WithMetadata(logger.FieldTaskID, in.Task.ID)
	}
	if in.JobID != "" {
		req.WithMetadata(logger.FieldJobID, in.JobID)
	}

	resp, err := r.client.Execute(ctx, req)
	if err != nil {
		return RunOutput{}, err
	}

	summary := NormalizeSummary(ExtractSummary(resp.Content))
	if summary == "" {
		return RunOutput{}, errors.Reason(errors.ErrCodeReviewEmptySummary)
	}

	logger.Info("Summary generated by agent",
		zap.String("client", r.client.Name()),
		zap.String("prompt_card_path", in.PromptCardPath),
		zap.Int("output_chars", len(resp.Content)),
		zap.Int("summary_chars", len([]rune(summary))),
	)
	return RunOutput{Summary: summary, Source: model.SummarySourceCodexCLI}, nil
}

// Name returns the underlying client name
func (r *CodexRunner) Name() string {
	return r.client.Name()
}
