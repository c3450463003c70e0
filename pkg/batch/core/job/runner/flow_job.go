package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	port "github.com/tigerroll/weatheretl/pkg/batch/core/application/port"
	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/weatheretl/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/weatheretl/pkg/batch/core/metrics"
	exception "github.com/tigerroll/weatheretl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

// ParameterValidator checks job parameters before the first step runs.
type ParameterValidator func(params model.JobParameters) error

// FlowJob is a port.Job that walks a FlowDefinition, executing one step at a time
// and following the transition rule that matches each step's exit status.
type FlowJob struct {
	id             string
	name           string
	flow           *model.FlowDefinition
	jobRepository  repository.JobRepository
	jobListeners   []port.JobExecutionListener
	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
	validators     []ParameterValidator
}

var _ port.Job = (*FlowJob)(nil)

// NewFlowJob creates a new instance of FlowJob.
func NewFlowJob(
	id string,
	name string,
	flow *model.FlowDefinition,
	jobRepository repository.JobRepository,
	jobListeners []port.JobExecutionListener,
	metricRecorder metrics.MetricRecorder,
	tracer metrics.Tracer,
	validators ...ParameterValidator,
) *FlowJob {
	if metricRecorder == nil {
		metricRecorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &FlowJob{
		id:             id,
		name:           name,
		flow:           flow,
		jobRepository:  jobRepository,
		jobListeners:   jobListeners,
		metricRecorder: metricRecorder,
		tracer:         tracer,
		validators:     validators,
	}
}

// ID returns the job ID.
func (j *FlowJob) ID() string { return j.id }

// JobName returns the job name.
func (j *FlowJob) JobName() string { return j.name }

// GetFlow returns the job flow definition.
func (j *FlowJob) GetFlow() *model.FlowDefinition { return j.flow }

// ValidateParameters runs the registered validators in order.
func (j *FlowJob) ValidateParameters(params model.JobParameters) error {
	logger.Debugf("Job '%s': validating JobParameters %s", j.name, params.String())
	for _, v := range j.validators {
		if err := v(params); err != nil {
			return exception.NewBatchError(j.name, "invalid job parameters", err, false, false)
		}
	}
	return nil
}

func (j *FlowJob) notifyBeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	for _, l := range j.jobListeners {
		l.BeforeJob(ctx, jobExecution)
	}
}

func (j *FlowJob) notifyAfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	for _, l := range j.jobListeners {
		l.AfterJob(ctx, jobExecution)
	}
}

func (j *FlowJob) fail(ctx context.Context, jobExecution *model.JobExecution, err error) error {
	logger.Errorf("Job '%s': %v", j.name, err)
	jobExecution.MarkAsFailed(err)
	j.tracer.RecordError(ctx, "job_runner", err)
	return err
}

// Run executes the flow from its start element until a transition ends it,
// a step fails without a matching rule, or ctx is cancelled.
func (j *FlowJob) Run(ctx context.Context, jobExecution *model.JobExecution, jobParameters model.JobParameters) error {
	logger.Infof("Starting Job '%s' (Execution ID: %s).", j.name, jobExecution.ID)

	ctx, finishSpan := j.tracer.StartJobSpan(ctx, jobExecution)
	defer finishSpan()

	j.metricRecorder.RecordJobStart(ctx, jobExecution)
	j.notifyBeforeJob(ctx, jobExecution)

	defer func() {
		if jobExecution.EndTime == nil {
			now := time.Now()
			jobExecution.EndTime = &now
		}
		j.notifyAfterJob(ctx, jobExecution)
		j.metricRecorder.RecordJobEnd(ctx, jobExecution)

		logger.Infof("Job '%s' (Execution ID: %s) finished. Final Status: %s, Exit Status: %s",
			j.name, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus)
		for _, se := range jobExecution.StepExecutions {
			logger.Debugf("  StepExecution Details (Step: %s): %s", se.StepName, se.DebugString())
		}
	}()

	if err := j.ValidateParameters(jobParameters); err != nil {
		return j.fail(ctx, jobExecution, err)
	}

	currentElementID := j.flow.StartElement
	for {
		select {
		case <-ctx.Done():
			logger.Warnf("Context cancelled, interrupting execution of Job '%s': %v", j.name, ctx.Err())
			jobExecution.AddFailureException(ctx.Err())
			jobExecution.MarkAsStopped()
			j.tracer.RecordError(ctx, "job_runner", ctx.Err())
			return ctx.Err()
		default:
		}

		elementInterface, ok := j.flow.Elements[currentElementID]
		if !ok {
			return j.fail(ctx, jobExecution, exception.NewBatchErrorf(j.name, "Flow element '%s' not found", currentElementID))
		}
		step, ok := elementInterface.(port.Step)
		if !ok {
			return j.fail(ctx, jobExecution, exception.NewBatchErrorf(j.name, "Flow element '%s' is not a Step: %T", currentElementID, elementInterface))
		}

		stepName := step.StepName()
		jobExecution.CurrentStepName = stepName

		stepExecution := model.NewStepExecution(model.NewID(), jobExecution, stepName)
		jobExecution.AddStepExecution(stepExecution)
		if err := j.jobRepository.SaveStepExecution(ctx, stepExecution); err != nil {
			return j.fail(ctx, jobExecution, exception.NewBatchError(j.name, "Error saving new StepExecution", err, false, false))
		}

		stepErr := step.Execute(ctx, jobExecution, stepExecution)
		exitStatus := stepExecution.ExitStatus

		j.promote(step, stepExecution, jobExecution)

		if stepErr != nil {
			logger.Errorf("Job '%s': Error occurred during execution of step '%s': %v", j.name, stepName, stepErr)
			jobExecution.AddFailureException(stepErr)
			j.tracer.RecordError(ctx, "job_runner", stepErr)
			if exitStatus == model.ExitStatusUnknown {
				exitStatus = model.ExitStatusFailed
			}
		} else {
			logger.Infof("Job '%s': Step '%s' completed successfully. ExitStatus: %s", j.name, stepName, exitStatus)
		}

		rule, found := j.flow.GetTransitionRule(step.ID(), exitStatus)
		switch {
		case !found && stepErr == nil:
			logger.Infof("Job '%s': No transition rule found from '%s'. Completing job.", j.name, step.ID())
			jobExecution.MarkAsCompleted()
		case !found:
			j.finishWithStepError(jobExecution, stepErr)
		case rule.Transition.End:
			logger.Infof("Job '%s': 'End' transition from '%s'. Completing job.", j.name, step.ID())
			jobExecution.MarkAsCompleted()
		case rule.Transition.Fail:
			failErr := stepErr
			if failErr == nil {
				failErr = fmt.Errorf("explicit fail transition from %s", step.ID())
			}
			logger.Errorf("Job '%s': 'Fail' transition from '%s'. Failing job.", j.name, step.ID())
			j.finishWithStepError(jobExecution, failErr)
		case rule.Transition.Stop:
			logger.Infof("Job '%s': 'Stop' transition from '%s'. Stopping job.", j.name, step.ID())
			jobExecution.MarkAsStopped()
		default:
			currentElementID = rule.Transition.To
			continue
		}
		break
	}

	if err := j.jobRepository.UpdateJobExecution(ctx, jobExecution); err != nil {
		logger.Warnf("Job '%s': failed to persist final JobExecution state: %v", j.name, err)
	}
	return nil
}

func (j *FlowJob) finishWithStepError(jobExecution *model.JobExecution, err error) {
	if errors.Is(err, context.Canceled) {
		jobExecution.MarkAsStopped()
		return
	}
	jobExecution.MarkAsFailed(err)
}

// promote copies the step's declared context keys into the job context.
func (j *FlowJob) promote(step port.Step, stepExecution *model.StepExecution, jobExecution *model.JobExecution) {
	promotion := step.GetExecutionContextPromotion()
	if promotion == nil {
		return
	}
	for _, key := range promotion.Keys {
		if val, ok := stepExecution.ExecutionContext.GetNested(key); ok {
			jobExecution.ExecutionContext.PutNested(key, val)
			logger.Debugf("FlowJob: Promoted key '%s' from Step '%s' to JobExecutionContext.", key, stepExecution.StepName)
		}
	}
	for stepKey, jobKey := range promotion.JobLevelKeys {
		if val, ok := stepExecution.ExecutionContext.GetNested(stepKey); ok {
			jobExecution.ExecutionContext.PutNested(jobKey, val)
			logger.Debugf("FlowJob: Promoted key '%s' as '%s' from Step '%s'.", stepKey, jobKey, stepExecution.StepName)
		}
	}
}
