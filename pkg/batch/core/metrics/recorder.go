// Package metrics defines the telemetry abstractions used by the batch engine.
package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
)

// MetricRecorder records metrics about batch execution.
// Implementations must be safe to call with a nil-free execution at any point in its lifecycle.
type MetricRecorder interface {
	// RecordJobStart records the start of a JobExecution.
	RecordJobStart(ctx context.Context, execution *model.JobExecution)
	// RecordJobEnd records the end of a JobExecution, including its duration and final status.
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)
	// RecordStepStart records the start of a StepExecution.
	RecordStepStart(ctx context.Context, execution *model.StepExecution)
	// RecordStepEnd records the end of a StepExecution.
	RecordStepEnd(ctx context.Context, execution *model.StepExecution)
	// RecordItemRead records count items read by a step.
	RecordItemRead(ctx context.Context, stepName string, count int)
	// RecordItemWrite records count items written by a step.
	RecordItemWrite(ctx context.Context, stepName string, count int)
	// RecordDuration records the duration of a named operation.
	//
	// tags: additional labels, e.g. `{"api_name": "openweather", "status": "200"}`.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
	// Flush exports buffered metrics. Batch processes call it once before exit.
	Flush(ctx context.Context) error
}
