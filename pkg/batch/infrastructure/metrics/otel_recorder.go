package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/weatheretl/pkg/batch/core/metrics"
	logger "github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

const instrumentationName = "github.com/tigerroll/weatheretl/pkg/batch"

// OTelRecorder is an OpenTelemetry implementation of metrics.MetricRecorder.
type OTelRecorder struct {
	provider *sdkmetric.MeterProvider

	jobRuns      otelmetric.Int64Counter
	jobDuration  otelmetric.Float64Histogram
	stepRuns     otelmetric.Int64Counter
	stepDuration otelmetric.Float64Histogram
	itemsRead    otelmetric.Int64Counter
	itemsWritten otelmetric.Int64Counter
	opDuration   otelmetric.Float64Histogram
}

// NewOTelRecorder creates instruments on provider.
func NewOTelRecorder(provider *sdkmetric.MeterProvider) (*OTelRecorder, error) {
	meter := provider.Meter(instrumentationName)
	r := &OTelRecorder{provider: provider}

	var err error
	if r.jobRuns, err = meter.Int64Counter("batch.job.executions",
		otelmetric.WithDescription("Finished job executions by status.")); err != nil {
		return nil, err
	}
	if r.jobDuration, err = meter.Float64Histogram("batch.job.duration",
		otelmetric.WithUnit("s"), otelmetric.WithDescription("Duration of job executions.")); err != nil {
		return nil, err
	}
	if r.stepRuns, err = meter.Int64Counter("batch.step.executions",
		otelmetric.WithDescription("Finished step executions by status.")); err != nil {
		return nil, err
	}
	if r.stepDuration, err = meter.Float64Histogram("batch.step.duration",
		otelmetric.WithUnit("s"), otelmetric.WithDescription("Duration of step executions.")); err != nil {
		return nil, err
	}
	if r.itemsRead, err = meter.Int64Counter("batch.step.items.read"); err != nil {
		return nil, err
	}
	if r.itemsWritten, err = meter.Int64Counter("batch.step.items.written"); err != nil {
		return nil, err
	}
	if r.opDuration, err = meter.Float64Histogram("batch.operation.duration", otelmetric.WithUnit("s")); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *OTelRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {}

func (r *OTelRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	attrs := otelmetric.WithAttributes(
		attribute.String("job_name", execution.JobName),
		attribute.String("status", execution.Status.String()),
	)
	r.jobRuns.Add(ctx, 1, attrs)
	if execution.EndTime != nil {
		r.jobDuration.Record(ctx, execution.EndTime.Sub(execution.StartTime).Seconds(), attrs)
	}
}

func (r *OTelRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {}

func (r *OTelRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	attrs := otelmetric.WithAttributes(
		attribute.String("job_name", jobNameOf(execution)),
		attribute.String("step_name", execution.StepName),
		attribute.String("status", execution.Status.String()),
	)
	r.stepRuns.Add(ctx, 1, attrs)
	if execution.EndTime != nil {
		r.stepDuration.Record(ctx, execution.EndTime.Sub(execution.StartTime).Seconds(), attrs)
	}
}

func (r *OTelRecorder) RecordItemRead(ctx context.Context, stepName string, count int) {
	r.itemsRead.Add(ctx, int64(count), otelmetric.WithAttributes(attribute.String("step_name", stepName)))
}

func (r *OTelRecorder) RecordItemWrite(ctx context.Context, stepName string, count int) {
	r.itemsWritten.Add(ctx, int64(count), otelmetric.WithAttributes(attribute.String("step_name", stepName)))
}

func (r *OTelRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := make([]attribute.KeyValue, 0, len(tags)+1)
	attrs = append(attrs, attribute.String("operation", name))
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.opDuration.Record(ctx, duration.Seconds(), otelmetric.WithAttributes(attrs...))
}

// Flush forces the periodic reader to export now.
func (r *OTelRecorder) Flush(ctx context.Context) error {
	if err := r.provider.ForceFlush(ctx); err != nil {
		logger.Warnf("Metrics: OTLP flush failed: %v", err)
		return err
	}
	return nil
}

// Shutdown flushes and stops the meter provider.
func (r *OTelRecorder) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}

var _ metrics.MetricRecorder = (*OTelRecorder)(nil)
