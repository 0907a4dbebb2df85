package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpanHelpers(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("test")

	_, failed := tracer.Start(context.Background(), "failed", WithJobAttributes("task-1", "job-1"))
	SetSpanError(failed, errors.New("codex_review_timeout"))
	failed.End()

	_, ok := tracer.Start(context.Background(), "ok")
	SetSpanError(ok, nil)
	SetSpanOK(ok)
	ok.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "codex_review_timeout", spans[0].Status().Description)
	assert.Contains(t, spans[0].Attributes(), AttrTaskID.String("task-1"))
	assert.Contains(t, spans[0].Attributes(), AttrJobID.String("job-1"))

	assert.Equal(t, codes.Ok, spans[1].Status().Code)
}

func TestStartSpanUsesGlobalTracer(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "noop")
	defer span.End()
	assert.NotNil(t, ctx)
	assert.Equal(t, TracerName, "github.com/voicebot/codexreview")
}
