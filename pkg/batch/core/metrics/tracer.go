package metrics

import (
	"context"

	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
)

// Tracer is an abstraction over distributed tracing of job and step executions.
type Tracer interface {
	// StartJobSpan starts a span for a JobExecution.
	// It returns a context carrying the span and a function that ends it.
	StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func())
	// StartStepSpan starts a child span for a StepExecution.
	StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func())
	// RecordError records err on the span in ctx.
	RecordError(ctx context.Context, module string, err error)
	// RecordEvent records a named event with attributes on the span in ctx.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
