package runner

import (
	"context"
	"time"

	port "github.com/tigerroll/weatheretl/pkg/batch/core/application/port"
	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/weatheretl/pkg/batch/core/domain/repository"
	logger "github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

// SimpleJobRunner is a port.JobRunner that persists the JobExecution around Job.Run.
type SimpleJobRunner struct {
	jobRepository repository.JobRepository
}

// NewSimpleJobRunner creates an instance of SimpleJobRunner.
func NewSimpleJobRunner(repo repository.JobRepository) *SimpleJobRunner {
	return &SimpleJobRunner{jobRepository: repo}
}

// Run marks the execution started, runs the job, and guarantees a finished status afterwards.
func (r *SimpleJobRunner) Run(ctx context.Context, jobInstance port.Job, jobExecution *model.JobExecution) {
	if err := r.jobRepository.SaveJobExecution(ctx, jobExecution); err != nil {
		logger.Errorf("JobRunner: Failed to save JobExecution (ID: %s): %v", jobExecution.ID, err)
		jobExecution.MarkAsFailed(err)
		return
	}

	jobExecution.MarkAsStarted()
	if err := r.jobRepository.UpdateJobExecution(ctx, jobExecution); err != nil {
		logger.Errorf("JobRunner: Failed to update JobExecution (ID: %s) status to STARTED: %v", jobExecution.ID, err)
	}

	err := jobInstance.Run(ctx, jobExecution, jobExecution.Parameters)
	if err != nil {
		if !jobExecution.Status.IsFinished() {
			jobExecution.MarkAsFailed(err)
		}
	} else if !jobExecution.Status.IsFinished() {
		jobExecution.MarkAsCompleted()
	}

	if updateErr := r.jobRepository.UpdateJobExecution(ctx, jobExecution); updateErr != nil {
		logger.Errorf("JobRunner: Failed to update final JobExecution (ID: %s) state: %v", jobExecution.ID, updateErr)
	}
	if jobExecution.EndTime == nil {
		now := time.Now()
		jobExecution.EndTime = &now
	}
}

var _ port.JobRunner = (*SimpleJobRunner)(nil)
