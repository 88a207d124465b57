package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"complexome/internal/annotation"
	"complexome/internal/clustering"
	"complexome/internal/infrastructure"
)

// OperationTracer provides OpenTelemetry instrumentation for pipeline runs
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewOperationTracer creates a tracer and the pipeline instruments
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	if providers == nil {
		providers = infrastructure.NoopProviders(nil)
	}
	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	return &OperationTracer{
		tracer:  providers.Tracer,
		metrics: metrics,
	}, nil
}

// Metrics returns the pipeline instruments
func (pt *OperationTracer) Metrics() *infrastructure.PipelineMetrics {
	return pt.metrics
}

// TraceOperationExecution creates a span for the entire run
func (pt *OperationTracer) TraceOperationExecution(ctx context.Context, operationID string, req OperationRequest) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("operation.settings_path", req.SettingsPath),
			attribute.String("operation.table_path", req.TablePath),
		),
	)
}

// TraceStageExecution creates a span for one step
func (pt *OperationTracer) TraceStageExecution(ctx context.Context, operationID, stageID string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, fmt.Sprintf("pipeline.step.%s", stageID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("step.id", stageID),
		),
	)
}

// RecordOperationCompletion records the run outcome on the span and counters
func (pt *OperationTracer) RecordOperationCompletion(ctx context.Context, span trace.Span, status OperationStatusValue, duration time.Duration, errorCount int) {
	span.SetAttributes(
		attribute.String("operation.status", string(status)),
		attribute.Float64("operation.duration_seconds", duration.Seconds()),
		attribute.Int("operation.error_count", errorCount),
	)
	infrastructure.RecordOutcome(ctx, pt.metrics.RunsTotal, string(status))

	if status == OperationStatusCompleted {
		span.SetStatus(codes.Ok, "operation completed")
	} else {
		span.SetStatus(codes.Error, fmt.Sprintf("operation ended with status %s", status))
	}
}

// RecordStageCompletion records a step outcome. Skipped steps carry the
// reason as a span event.
func (pt *OperationTracer) RecordStageCompletion(ctx context.Context, span trace.Span, stageID string, status StepStatus, duration time.Duration, detail string) {
	span.SetAttributes(
		attribute.String("step.status", string(status)),
		attribute.Float64("step.duration_seconds", duration.Seconds()),
	)
	attrs := attribute.String("step_id", stageID)
	infrastructure.RecordOutcome(ctx, pt.metrics.StepsTotal, string(status), attrs)
	if status != StepStatusSkipped {
		pt.metrics.StepDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs))
	}

	switch status {
	case StepStatusFailed:
		span.SetStatus(codes.Error, detail)
	case StepStatusSkipped:
		span.AddEvent("step.skipped", trace.WithAttributes(attribute.String("reason", detail)))
		span.SetStatus(codes.Ok, "")
	default:
		span.SetStatus(codes.Ok, "")
	}
}

// RecordStageError records an error on the step span
func (pt *OperationTracer) RecordStageError(span trace.Span, stageID string, err error) {
	span.RecordError(err, trace.WithAttributes(
		attribute.String("step.id", stageID),
		attribute.String("error.type", string(GetErrorType(err))),
	))
}

// RecordFetchStats counts annotation batches by outcome
func (pt *OperationTracer) RecordFetchStats(ctx context.Context, stats *annotation.FetchStats) {
	if stats == nil {
		return
	}
	for i := 0; i < stats.Batches; i++ {
		outcome := "succeeded"
		if i < stats.FailedBatches {
			outcome = "failed"
		}
		infrastructure.RecordOutcome(ctx, pt.metrics.AnnotationBatches, outcome)
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("annotation.identifiers", stats.Identifiers),
		attribute.Int("annotation.batches", stats.Batches),
		attribute.Int("annotation.failed_batches", stats.FailedBatches),
		attribute.Int("annotation.field_errors", stats.FieldErrors),
		attribute.Bool("annotation.mapping_failed", stats.MappingFailed),
	)
}

// RecordReorderResult counts clustered groups by outcome
func (pt *OperationTracer) RecordReorderResult(ctx context.Context, result *clustering.ReorderResult) {
	if result == nil {
		return
	}
	for range result.Orders {
		infrastructure.RecordOutcome(ctx, pt.metrics.ReorderGroups, "succeeded")
	}
	for range result.Failed {
		infrastructure.RecordOutcome(ctx, pt.metrics.ReorderGroups, "failed")
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("reorder.groups", len(result.Columns)),
		attribute.Int("reorder.failed", len(result.Failed)),
	)
}
