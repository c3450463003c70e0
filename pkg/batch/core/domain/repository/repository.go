// Package repository defines persistence of batch execution metadata.
package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
)

// ErrJobExecutionNotFound is returned when a JobExecution is not found.
var ErrJobExecutionNotFound = errors.New("job execution not found")

// ErrStepExecutionNotFound is returned when a StepExecution is not found.
var ErrStepExecutionNotFound = errors.New("step execution not found")

// JobExecution persists job executions.
type JobExecution interface {
	SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error
	UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error
	// FindJobExecutionByID returns the execution with its StepExecutions attached.
	FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error)
	// FindLatestJobExecution returns the most recently created execution of jobName.
	FindLatestJobExecution(ctx context.Context, jobName string) (*model.JobExecution, error)
}

// StepExecution persists step executions.
type StepExecution interface {
	SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error
	UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error
	FindStepExecutionByID(ctx context.Context, executionID string) (*model.StepExecution, error)
}

// JobRepository persists and retrieves batch execution metadata.
type JobRepository interface {
	JobExecution
	StepExecution

	// Close releases resources used by the repository.
	Close() error
}
