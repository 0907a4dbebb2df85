package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebot/codexreview/internal/llm"
	"github.com/voicebot/codexreview/internal/llm/mock"
	"github.com/voicebot/codexreview/internal/model"
	"github.com/voicebot/codexreview/pkg/errors"
	"github.com/voicebot/codexreview/pkg/logger"
)

func TestCodexRunner_Run(t *testing.T) {
	client := mock.New(mock.Reply{Content: "```json\n{\"summary\":\"Summary: Fixes login bug.\"}\n```"})
	runner := NewCodexRunner(client)

	out, err := runner.Run(context.Background(), RunInput{
		Task:   &model.Task{ID: "cnkofmsq2oga1sse1l10"},
		JobID:  "job-1",
		Prompt: "review this",
	})
	require.NoError(t, err)
	assert.Equal(t, "Fixes login bug.", out.Summary)
	assert.Equal(t, model.SummarySourceCodexCLI, out.Source)
	assert.Equal(t, mock.ClientName, runner.Name())

	requests := client.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "review this", requests[0].Prompt)
	assert.Equal(t, "cnkofmsq2oga1sse1l10", requests[0].GetMetadata(logger.FieldTaskID))
	assert.Equal(t, "job-1", requests[0].GetMetadata(logger.FieldJobID))
}

func TestCodexRunner_Errors(t *testing.T) {
	tests := []struct {
		name    string
		reply   mock.Reply
		wantErr string
	}{
		{"client error", mock.Reply{Err: llm.NewReasonError("codex", "execute", "codex_review_timeout", llm.ErrTimeout)}, "codex_review_timeout"},
		{"empty summary", mock.Reply{Content: `{"summary":"Summary: "}`}, string(errors.ErrCodeReviewEmptySummary)},
		{"blank output", mock.Reply{Content: "   "}, string(errors.ErrCodeReviewEmptySummary)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := NewCodexRunner(mock.New(tt.reply))
			_, err := runner.Run(context.Background(), RunInput{Task: &model.Task{ID: "cnkofmsq2oga1sse1l10"}})
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}
