// Package logging provides listeners that log job and step lifecycle
// events and print the pipeline banner to the console.
package logging

import (
	"context"
	"fmt"
	"io"
	"strings"

	port "github.com/tigerroll/weatheretl/pkg/batch/core/application/port"
	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

// --- Job Execution Listener ---

// LoggingJobListener logs job boundaries and frames the run with the pipeline banner.
type LoggingJobListener struct {
	console io.Writer
}

// NewLoggingJobListener creates a LoggingJobListener printing the banner to console.
func NewLoggingJobListener(console io.Writer) *LoggingJobListener {
	return &LoggingJobListener{console: console}
}

func (l *LoggingJobListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	logger.Infof("JobExecutionListener: BeforeJob - JobName: %s, ID: %s, Params: %s", jobExecution.JobName, jobExecution.ID, jobExecution.Parameters.String())
	fmt.Fprintln(l.console, "=== START PIPELINE ===")
}

func (l *LoggingJobListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	logger.Infof("JobExecutionListener: AfterJob - JobName: %s, Status: %s, ExitStatus: %s", jobExecution.JobName, jobExecution.Status, jobExecution.ExitStatus)
	switch jobExecution.Status {
	case model.BatchStatusCompleted:
		fmt.Fprintln(l.console, "=== PIPELINE FINISHED SUCCESSFULLY ===")
	case model.BatchStatusStopped:
		fmt.Fprintln(l.console, "=== PIPELINE STOPPED ===")
	default:
		fmt.Fprintf(l.console, "=== PIPELINE FAILED: %s ===\n", strings.Join(jobExecution.Failures, "; "))
	}
}

var _ port.JobExecutionListener = (*LoggingJobListener)(nil)

// --- Step Execution Listener ---

// StepListenerProperties are bound from the listener properties in job.yaml.
type StepListenerProperties struct {
	// Stage is the progress marker, e.g. "1/3".
	Stage string `yaml:"stage"`
	// Label describes the stage, e.g. "Fetching weather data".
	Label string `yaml:"label"`
}

// LoggingStepListener logs step boundaries and prints the "[n/m] label" progress line.
type LoggingStepListener struct {
	props   StepListenerProperties
	console io.Writer
}

// NewLoggingStepListener creates a LoggingStepListener. With neither stage nor label set, nothing is printed to console.
func NewLoggingStepListener(props StepListenerProperties, console io.Writer) *LoggingStepListener {
	return &LoggingStepListener{props: props, console: console}
}

func (l *LoggingStepListener) BeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	logger.Infof("StepExecutionListener: BeforeStep - StepName: %s, ID: %s", stepExecution.StepName, stepExecution.ID)
	if l.props.Stage == "" && l.props.Label == "" {
		return
	}
	label := l.props.Label
	if label == "" {
		label = stepExecution.StepName
	}
	if l.props.Stage != "" {
		fmt.Fprintf(l.console, "[%s] %s...\n", l.props.Stage, label)
	} else {
		fmt.Fprintf(l.console, "%s...\n", label)
	}
}

func (l *LoggingStepListener) AfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	if stepExecution.Status == model.BatchStatusFailed {
		logger.Errorf("StepExecutionListener: AfterStep - StepName: %s, Status: %s, Failures: %v", stepExecution.StepName, stepExecution.Status, stepExecution.Failures)
		return
	}
	logger.Infof("StepExecutionListener: AfterStep - StepName: %s, Status: %s, ExitStatus: %s", stepExecution.StepName, stepExecution.Status, stepExecution.ExitStatus)
}

var _ port.StepExecutionListener = (*LoggingStepListener)(nil)
