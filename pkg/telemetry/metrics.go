// Package telemetry provides OpenTelemetry integration for the application.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/voicebot/codexreview/consts"
	"github.com/voicebot/codexreview/pkg/logger"
)

// MeterName is the default meter name for the application
const MeterName = consts.ModulePath

// Job outcomes used as metric attribute values
const (
	OutcomeCompleted = "completed"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
	OutcomeInvalid   = "invalid"
)

// Metrics holds all application metrics
type Metrics struct {
	// Job metrics
	JobsTotal   metric.Int64Counter
	JobDuration metric.Float64Histogram
	ActiveJobs  metric.Int64UpDownCounter

	// Review runner metrics
	RunnerExecutions metric.Int64Counter
	FallbackSummary  metric.Int64Counter

	// Side effects
	IssueNotes     metric.Int64Counter
	ApprovalCards  metric.Int64Counter
	CallbackEvents metric.Int64Counter

	// Queue metrics
	JobsEnqueued metric.Int64Counter

	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics returns the global metrics instance, initializing it on first use
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		var err error
		globalMetrics, err = initMetrics(otel.Meter(MeterName))
		if err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			globalMetrics = &Metrics{}
		}
	})
	return globalMetrics
}

// NewMetrics creates metrics on the given meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	return initMetrics(meter)
}

func initMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.JobsTotal, err = meter.Int64Counter(
		"codexreview_jobs_total",
		metric.WithDescription("Deferred review jobs handled, by outcome"),
		metric.WithUnit("{job}"),
	); err != nil {
		return nil, err
	}

	if m.JobDuration, err = meter.Float64Histogram(
		"codexreview_job_duration_seconds",
		metric.WithDescription("Duration of deferred review jobs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 10, 30, 60, 120, 180, 300),
	); err != nil {
		return nil, err
	}

	if m.ActiveJobs, err = meter.Int64UpDownCounter(
		"codexreview_active_jobs",
		metric.WithDescription("Jobs currently being handled"),
		metric.WithUnit("{job}"),
	); err != nil {
		return nil, err
	}

	if m.RunnerExecutions, err = meter.Int64Counter(
		"codexreview_runner_executions_total",
		metric.WithDescription("Review runner executions, by success"),
		metric.WithUnit("{execution}"),
	); err != nil {
		return nil, err
	}

	if m.FallbackSummary, err = meter.Int64Counter(
		"codexreview_fallback_summaries_total",
		metric.WithDescription("Summaries synthesized from task fields after a runner failure"),
		metric.WithUnit("{summary}"),
	); err != nil {
		return nil, err
	}

	if m.IssueNotes, err = meter.Int64Counter(
		"codexreview_issue_notes_total",
		metric.WithDescription("Issue note append attempts, by result"),
		metric.WithUnit("{note}"),
	); err != nil {
		return nil, err
	}

	if m.ApprovalCards, err = meter.Int64Counter(
		"codexreview_approval_cards_total",
		metric.WithDescription("Approval card sends, by success"),
		metric.WithUnit("{card}"),
	); err != nil {
		return nil, err
	}

	if m.CallbackEvents, err = meter.Int64Counter(
		"codexreview_callbacks_total",
		metric.WithDescription("Approval card callbacks, by action and result"),
		metric.WithUnit("{callback}"),
	); err != nil {
		return nil, err
	}

	if m.JobsEnqueued, err = meter.Int64Counter(
		"codexreview_jobs_enqueued_total",
		metric.WithDescription("Jobs placed on the in-process queue, by origin"),
		metric.WithUnit("{job}"),
	); err != nil {
		return nil, err
	}

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"codexreview_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"codexreview_http_request_duration_seconds",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordJobStarted increments the active job gauge
func (m *Metrics) RecordJobStarted(ctx context.Context) {
	if m.ActiveJobs != nil {
		m.ActiveJobs.Add(ctx, 1)
	}
}

// RecordJobFinished records a job outcome and its duration
func (m *Metrics) RecordJobFinished(ctx context.Context, outcome string, durationSeconds float64) {
	if m.ActiveJobs != nil {
		m.ActiveJobs.Add(ctx, -1)
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if m.JobsTotal != nil {
		m.JobsTotal.Add(ctx, 1, attrs)
	}
	if m.JobDuration != nil {
		m.JobDuration.Record(ctx, durationSeconds, attrs)
	}
}

// RecordRunnerExecution records one review runner call
func (m *Metrics) RecordRunnerExecution(ctx context.Context, runner string, success bool) {
	if m.RunnerExecutions != nil {
		m.RunnerExecutions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("runner", runner),
			attribute.Bool("success", success),
		))
	}
	if !success && m.FallbackSummary != nil {
		m.FallbackSummary.Add(ctx, 1)
	}
}

// RecordIssueNote records an annotation attempt; result is appended, skipped or failed
func (m *Metrics) RecordIssueNote(ctx context.Context, result string) {
	if m.IssueNotes != nil {
		m.IssueNotes.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}
}

// RecordApprovalCard records an approval card send
func (m *Metrics) RecordApprovalCard(ctx context.Context, success bool) {
	if m.ApprovalCards != nil {
		m.ApprovalCards.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
	}
}

// RecordCallback records a handled approval callback
func (m *Metrics) RecordCallback(ctx context.Context, action string, ok bool) {
	if m.CallbackEvents != nil {
		m.CallbackEvents.Add(ctx, 1, metric.WithAttributes(
			attribute.String("action", action),
			attribute.Bool("ok", ok),
		))
	}
}

// RecordEnqueued records a job accepted by the queue; origin is scheduler or api
func (m *Metrics) RecordEnqueued(ctx context.Context, origin string) {
	if m.JobsEnqueued != nil {
		m.JobsEnqueued.Add(ctx, 1, metric.WithAttributes(attribute.String("origin", origin)))
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	if m.HTTPRequestsTotal != nil {
		m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", path),
			attribute.Int("status_code", statusCode),
		))
	}
	if m.HTTPRequestDuration != nil {
		m.HTTPRequestDuration.Record(ctx, durationSeconds, metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", path),
		))
	}
}
