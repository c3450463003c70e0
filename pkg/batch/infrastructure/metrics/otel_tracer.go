package metrics

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/weatheretl/pkg/batch/core/metrics"
)

// OpenTelemetryTracer is an implementation of metrics.Tracer using OpenTelemetry.
type OpenTelemetryTracer struct {
	tracer trace.Tracer
}

// NewOpenTelemetryTracer creates a tracer on provider.
func NewOpenTelemetryTracer(provider trace.TracerProvider) *OpenTelemetryTracer {
	return &OpenTelemetryTracer{tracer: provider.Tracer(instrumentationName)}
}

// StartJobSpan starts a root span for a JobExecution. The returned function ends it with the job's final status.
func (t *OpenTelemetryTracer) StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "job "+execution.JobName, trace.WithAttributes(
		attribute.String("batch.job.name", execution.JobName),
		attribute.String("batch.job.execution_id", execution.ID),
	))
	return ctx, func() {
		span.SetAttributes(
			attribute.String("batch.status", execution.Status.String()),
			attribute.String("batch.exit_status", execution.ExitStatus.String()),
		)
		endWithStatus(span, execution.Status, execution.Failures)
		span.End()
	}
}

// StartStepSpan starts a child span for a StepExecution.
func (t *OpenTelemetryTracer) StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "step "+execution.StepName, trace.WithAttributes(
		attribute.String("batch.step.name", execution.StepName),
		attribute.String("batch.step.execution_id", execution.ID),
	))
	return ctx, func() {
		span.SetAttributes(
			attribute.String("batch.status", execution.Status.String()),
			attribute.String("batch.exit_status", execution.ExitStatus.String()),
		)
		endWithStatus(span, execution.Status, execution.Failures)
		span.End()
	}
}

func endWithStatus(span trace.Span, status model.JobStatus, failures model.FailureList) {
	switch status {
	case model.BatchStatusCompleted:
		span.SetStatus(codes.Ok, "")
	case model.BatchStatusFailed:
		span.SetStatus(codes.Error, strings.Join(failures, "; "))
	}
}

// RecordError records err on the span in ctx and marks the span as failed.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attribute.String("batch.module", module)))
	span.SetStatus(codes.Error, err.Error())
}

// RecordEvent adds an event to the span in ctx.
func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	kvs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			kvs = append(kvs, attribute.String(k, val))
		case int:
			kvs = append(kvs, attribute.Int(k, val))
		case int64:
			kvs = append(kvs, attribute.Int64(k, val))
		case float64:
			kvs = append(kvs, attribute.Float64(k, val))
		case bool:
			kvs = append(kvs, attribute.Bool(k, val))
		default:
			kvs = append(kvs, attribute.String(k, fmt.Sprint(val)))
		}
	}
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(kvs...))
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)
