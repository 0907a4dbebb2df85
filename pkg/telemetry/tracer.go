// Package telemetry provides OpenTelemetry integration for the application.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/voicebot/codexreview/consts"
)

// TracerName is the default tracer name for the application
const TracerName = consts.ModulePath

// Tracer returns the global tracer for the application
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts a new span with the given name
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// SetSpanError records err on the span and marks it failed. A nil err is ignored.
func SetSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanOK marks the span successful
func SetSpanOK(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// Common attribute keys
var (
	AttrTaskID        = attribute.Key("task.id")
	AttrJobID         = attribute.Key("job.id")
	AttrIssueID       = attribute.Key("issue.id")
	AttrSummarySource = attribute.Key("summary.source")
	AttrOutcome       = attribute.Key("job.outcome")
	AttrCommand       = attribute.Key("process.command")
	AttrExitCode      = attribute.Key("process.exit_code")
)

// WithJobAttributes returns span start options identifying a review job
func WithJobAttributes(taskID, jobID string) trace.SpanStartOption {
	return trace.WithAttributes(
		AttrTaskID.String(taskID),
		AttrJobID.String(jobID),
	)
}
