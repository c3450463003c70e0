// Package port defines the interfaces between the batch engine and job components.
package port

import (
	"context"

	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/weatheretl/pkg/batch/core/metrics"
)

// FlowElement is an element of a job flow that can be the source of a transition.
type FlowElement interface {
	// ID returns the element ID used in transition rules.
	ID() string
}

// JobRunner executes a Job against a prepared JobExecution.
type JobRunner interface {
	Run(ctx context.Context, jobInstance Job, jobExecution *model.JobExecution)
}

// Job is a runnable batch job.
type Job interface {
	// Run executes the flow and records the outcome on jobExecution.
	// A non-nil error is returned only for failures of the job machinery itself;
	// step failures are reported through jobExecution.Status.
	Run(ctx context.Context, jobExecution *model.JobExecution, jobParameters model.JobParameters) error
	JobName() string
	ID() string
	GetFlow() *model.FlowDefinition
	// ValidateParameters rejects a launch before any step runs.
	ValidateParameters(params model.JobParameters) error
}

// Step is one unit of a job flow.
type Step interface {
	FlowElement
	Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error
	StepName() string
	SetMetricRecorder(recorder metrics.MetricRecorder)
	SetTracer(tracer metrics.Tracer)
	// GetExecutionContextPromotion returns the keys copied to the job context after the step, or nil.
	GetExecutionContextPromotion() *model.ExecutionContextPromotion
}

// Tasklet is a single-shot unit of work executed by a TaskletStep.
type Tasklet interface {
	Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error)
	Close(ctx context.Context) error
	// SetExecutionContext hands the step context to the tasklet before Execute.
	SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error
	// GetExecutionContext returns the context to store on the step after Execute.
	GetExecutionContext(ctx context.Context) (model.ExecutionContext, error)
}

// StepExecutionListener is notified around each step.
type StepExecutionListener interface {
	BeforeStep(ctx context.Context, stepExecution *model.StepExecution)
	AfterStep(ctx context.Context, stepExecution *model.StepExecution)
}

// JobExecutionListener is notified around each job.
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, jobExecution *model.JobExecution)
	AfterJob(ctx context.Context, jobExecution *model.JobExecution)
}
