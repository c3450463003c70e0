package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
)

func finishedJob(status model.JobStatus) (*model.JobExecution, *model.StepExecution) {
	je := model.NewJobExecution("weatherJob", model.NewJobParameters())
	se := model.NewStepExecution(model.NewID(), je, "fetchStep")
	end := je.StartTime.Add(2 * time.Second)
	je.Status, se.Status = status, status
	je.EndTime, se.EndTime = &end, &end
	se.StartTime = je.StartTime
	return je, se
}

func TestPrometheusRecorder_RecordsAndWritesTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weatheretl.prom")
	r := NewPrometheusRecorder(PrometheusOptions{TextfilePath: path})
	ctx := context.Background()

	je, se := finishedJob(model.BatchStatusCompleted)
	r.RecordStepEnd(ctx, se)
	r.RecordItemWrite(ctx, "loadStep", 1)
	r.RecordJobEnd(ctx, je)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.jobStatusCounter.WithLabelValues("weatherJob", "COMPLETED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stepStatusCounter.WithLabelValues("weatherJob", "fetchStep", "COMPLETED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stepWriteCount.WithLabelValues("loadStep")))
	assert.Equal(t, float64(je.EndTime.Unix()), testutil.ToFloat64(r.lastSuccess.WithLabelValues("weatherJob")))

	require.NoError(t, r.Flush(ctx))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "batch_job_duration_seconds"))
}

func TestOpenTelemetryTracer_SpansCarryStatus(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tracer := NewOpenTelemetryTracer(tp)

	je, se := finishedJob(model.BatchStatusStarted)
	ctx, endJob := tracer.StartJobSpan(context.Background(), je)
	stepCtx, endStep := tracer.StartStepSpan(ctx, se)
	tracer.RecordEvent(stepCtx, "raw.written", map[string]interface{}{"path": "data/raw/x.csv", "rows": 1})
	tracer.RecordError(stepCtx, "fetchStep", errors.New("status 500"))
	se.Status = model.BatchStatusFailed
	endStep()
	je.Status = model.BatchStatusFailed
	je.Failures = append(je.Failures, "status 500")
	endJob()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "step fetchStep", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.NotEmpty(t, spans[0].Events())
	assert.Equal(t, "raw.written", spans[0].Events()[0].Name)
	assert.Equal(t, "job weatherJob", spans[1].Name())
	assert.Equal(t, "status 500", spans[1].Status().Description)
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestOTelRecorder_ExportsInstruments(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	r, err := NewOTelRecorder(provider)
	require.NoError(t, err)

	ctx := context.Background()
	je, se := finishedJob(model.BatchStatusCompleted)
	r.RecordStepEnd(ctx, se)
	r.RecordJobEnd(ctx, je)
	r.RecordDuration(ctx, "openweather.fetch", 150*time.Millisecond, map[string]string{"status": "200"})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["batch.job.executions"])
	assert.True(t, names["batch.step.duration"])
	assert.True(t, names["batch.operation.duration"])
	require.NoError(t, r.Shutdown(ctx))
}
