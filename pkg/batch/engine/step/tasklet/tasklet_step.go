// Package tasklet provides the Step implementation that runs a single port.Tasklet.
package tasklet

import (
	"context"
	"errors"
	"time"

	port "github.com/tigerroll/weatheretl/pkg/batch/core/application/port"
	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/weatheretl/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/weatheretl/pkg/batch/core/metrics"
	exception "github.com/tigerroll/weatheretl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

// TaskletStep executes a Tasklet once and records the outcome on its StepExecution.
type TaskletStep struct {
	id                     string
	tasklet                port.Tasklet
	jobRepository          repository.JobRepository
	stepExecutionListeners []port.StepExecutionListener
	promotion              *model.ExecutionContextPromotion

	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
}

// NewTaskletStep creates a new TaskletStep. A nil recorder or tracer is replaced with a no-op.
func NewTaskletStep(
	id string,
	tasklet port.Tasklet,
	jobRepository repository.JobRepository,
	stepExecutionListeners []port.StepExecutionListener,
	promotion *model.ExecutionContextPromotion,
	metricRecorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) *TaskletStep {
	s := &TaskletStep{
		id:                     id,
		tasklet:                tasklet,
		jobRepository:          jobRepository,
		stepExecutionListeners: stepExecutionListeners,
		promotion:              promotion,
	}
	s.SetMetricRecorder(metricRecorder)
	s.SetTracer(tracer)
	return s
}

// SetMetricRecorder sets the MetricRecorder.
func (s *TaskletStep) SetMetricRecorder(recorder metrics.MetricRecorder) {
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	s.metricRecorder = recorder
}

// SetTracer sets the Tracer.
func (s *TaskletStep) SetTracer(tracer metrics.Tracer) {
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	s.tracer = tracer
}

// ID returns the step ID.
func (s *TaskletStep) ID() string { return s.id }

// StepName returns the step name, which is the step ID.
func (s *TaskletStep) StepName() string { return s.id }

// GetExecutionContextPromotion returns the promotion settings.
func (s *TaskletStep) GetExecutionContextPromotion() *model.ExecutionContextPromotion {
	return s.promotion
}

func (s *TaskletStep) notifyBeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	for _, l := range s.stepExecutionListeners {
		l.BeforeStep(ctx, stepExecution)
	}
}

func (s *TaskletStep) notifyAfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	for _, l := range s.stepExecutionListeners {
		l.AfterStep(ctx, stepExecution)
	}
}

// Execute runs the tasklet. The tasklet is always closed, and the final StepExecution
// state is persisted even when the tasklet fails.
func (s *TaskletStep) Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) (err error) {
	logger.Infof("TaskletStep '%s' executing.", s.id)

	ctx, endSpan := s.tracer.StartStepSpan(ctx, stepExecution)
	defer endSpan()

	stepExecution.MarkAsStarted()
	s.metricRecorder.RecordStepStart(ctx, stepExecution)
	defer s.metricRecorder.RecordStepEnd(ctx, stepExecution)

	if err := s.jobRepository.UpdateStepExecution(ctx, stepExecution); err != nil {
		stepExecution.MarkAsFailed(err)
		return exception.NewBatchError(s.id, "Failed to update StepExecution status to STARTED", err, false, false)
	}

	if err := s.tasklet.SetExecutionContext(ctx, stepExecution.ExecutionContext); err != nil {
		stepExecution.MarkAsFailed(err)
		s.persist(ctx, stepExecution)
		return exception.NewBatchError(s.id, "Failed to set Tasklet ExecutionContext", err, false, false)
	}

	s.notifyBeforeStep(ctx, stepExecution)

	start := time.Now()
	exitStatus, err := s.tasklet.Execute(ctx, stepExecution)
	s.metricRecorder.RecordDuration(ctx, "tasklet.execute", time.Since(start), map[string]string{"step": s.id})

	if taskletEC, getErr := s.tasklet.GetExecutionContext(ctx); getErr == nil {
		stepExecution.ExecutionContext = taskletEC
	} else {
		logger.Warnf("TaskletStep '%s': Failed to retrieve ExecutionContext from Tasklet: %v", s.id, getErr)
	}

	if closeErr := s.tasklet.Close(ctx); closeErr != nil {
		logger.Errorf("TaskletStep '%s': Failed to close Tasklet: %v", s.id, closeErr)
		if err == nil {
			err = closeErr
		}
	}

	switch {
	case err != nil && errors.Is(err, context.Canceled):
		stepExecution.AddFailureException(err)
		stepExecution.MarkAsStopped()
		s.tracer.RecordError(ctx, s.id, err)
	case err != nil:
		stepExecution.MarkAsFailed(err)
		s.tracer.RecordError(ctx, s.id, err)
	default:
		stepExecution.MarkAsCompleted()
		if exitStatus != "" {
			stepExecution.ExitStatus = exitStatus
		}
	}

	s.notifyAfterStep(ctx, stepExecution)

	if updateErr := s.persist(ctx, stepExecution); updateErr != nil && err == nil {
		err = updateErr
	}

	logger.Infof("TaskletStep '%s' finished. ExitStatus: %s", s.id, stepExecution.ExitStatus)
	return err
}

func (s *TaskletStep) persist(ctx context.Context, stepExecution *model.StepExecution) error {
	if err := s.jobRepository.UpdateStepExecution(ctx, stepExecution); err != nil {
		logger.Errorf("TaskletStep '%s': Failed to update final StepExecution state: %v", s.id, err)
		return err
	}
	return nil
}

var _ port.Step = (*TaskletStep)(nil)
