// Package model defines the execution model of the batch framework:
// job and step executions, their statuses, parameters and flow definitions.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tigerroll/weatheretl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

// JobStatus represents the state of a job or step execution.
type JobStatus string

const (
	BatchStatusStarting  JobStatus = "STARTING"
	BatchStatusStarted   JobStatus = "STARTED"
	BatchStatusStopping  JobStatus = "STOPPING"
	BatchStatusStopped   JobStatus = "STOPPED"
	BatchStatusCompleted JobStatus = "COMPLETED"
	BatchStatusFailed    JobStatus = "FAILED"
	BatchStatusAbandoned JobStatus = "ABANDONED"
	BatchStatusUnknown   JobStatus = "UNKNOWN"
)

// String returns the string representation of the JobStatus.
func (s JobStatus) String() string {
	return string(s)
}

// IsFinished checks if the JobStatus represents a finished state.
func (s JobStatus) IsFinished() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusStopped, BatchStatusAbandoned:
		return true
	default:
		return false
	}
}

// ExitStatus represents the detailed status upon job/step completion.
type ExitStatus string

const (
	ExitStatusUnknown   ExitStatus = "UNKNOWN"
	ExitStatusCompleted ExitStatus = "COMPLETED"
	ExitStatusFailed    ExitStatus = "FAILED"
	ExitStatusStopped   ExitStatus = "STOPPED"
	ExitStatusAbandoned ExitStatus = "ABANDONED"
	ExitStatusNoOp      ExitStatus = "NO_OP"
)

// String returns the ExitStatus as a string.
func (s ExitStatus) String() string {
	return string(s)
}

// maskedParameterFragments lists substrings of parameter keys whose values are masked in logs.
var maskedParameterFragments = []string{"password", "secret", "api_key", "apikey", "token"}

// JobParameters holds the parameters of one job launch.
type JobParameters struct {
	Params map[string]interface{}
}

// NewJobParameters creates an empty JobParameters.
func NewJobParameters() JobParameters {
	return JobParameters{Params: make(map[string]interface{})}
}

// Put stores a parameter.
func (jp JobParameters) Put(key string, value interface{}) {
	jp.Params[key] = value
}

// Get returns a parameter or nil.
func (jp JobParameters) Get(key string) interface{} {
	if jp.Params == nil {
		return nil
	}
	return jp.Params[key]
}

// GetString returns a string parameter.
func (jp JobParameters) GetString(key string) (string, bool) {
	s, ok := jp.Get(key).(string)
	return s, ok
}

// String renders the parameters as JSON with sensitive values masked.
func (jp JobParameters) String() string {
	masked := make(map[string]interface{}, len(jp.Params))
	for k, v := range jp.Params {
		masked[k] = v
		lower := strings.ToLower(k)
		for _, frag := range maskedParameterFragments {
			if strings.Contains(lower, frag) {
				masked[k] = "********"
				break
			}
		}
	}
	data, err := json.Marshal(masked)
	if err != nil {
		return fmt.Sprintf("{[ERROR: Failed to marshal masked parameters: %v]}", err)
	}
	return string(data)
}

// Keys returns the parameter names in sorted order.
func (jp JobParameters) Keys() []string {
	keys := make([]string, 0, len(jp.Params))
	for k := range jp.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FailureList holds a list of error messages.
type FailureList []string

// JobExecution is a single execution of a job.
type JobExecution struct {
	ID               string
	JobName          string
	Parameters       JobParameters
	StartTime        time.Time
	EndTime          *time.Time
	Status           JobStatus
	ExitStatus       ExitStatus
	Failures         FailureList
	// Errors keeps the original failure values for errors.Is inspection by callers.
	Errors           []error
	CreateTime       time.Time
	LastUpdated      time.Time
	StepExecutions   []*StepExecution
	ExecutionContext ExecutionContext
	CurrentStepName  string
	CancelFunc       context.CancelFunc
}

// StepExecution is a single execution of a step within a JobExecution.
type StepExecution struct {
	ID               string
	StepName         string
	JobExecution     *JobExecution
	JobExecutionID   string
	StartTime        time.Time
	EndTime          *time.Time
	Status           JobStatus
	ExitStatus       ExitStatus
	Failures         FailureList
	ReadCount        int
	WriteCount       int
	FilterCount      int
	ExecutionContext ExecutionContext
	LastUpdated      time.Time
}

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}

// NewJobExecution creates a new JobExecution in STARTING state.
func NewJobExecution(jobName string, params JobParameters) *JobExecution {
	now := time.Now()
	if params.Params == nil {
		params = NewJobParameters()
	}
	return &JobExecution{
		ID:               NewID(),
		JobName:          jobName,
		Parameters:       params,
		StartTime:        now,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		CreateTime:       now,
		LastUpdated:      now,
		Failures:         make(FailureList, 0),
		StepExecutions:   make([]*StepExecution, 0),
		ExecutionContext: NewExecutionContext(),
	}
}

func isValidJobTransition(current, next JobStatus) bool {
	switch current {
	case BatchStatusStarting:
		return next == BatchStatusStarted || next == BatchStatusFailed || next == BatchStatusStopped || next == BatchStatusAbandoned
	case BatchStatusStarted:
		return next == BatchStatusStopping || next == BatchStatusCompleted || next == BatchStatusFailed || next == BatchStatusStopped || next == BatchStatusAbandoned
	case BatchStatusStopping:
		return next == BatchStatusStopped || next == BatchStatusFailed || next == BatchStatusAbandoned
	default:
		return false
	}
}

// TransitionTo moves the JobExecution to newStatus or returns an error for an illegal transition.
func (je *JobExecution) TransitionTo(newStatus JobStatus) error {
	if !isValidJobTransition(je.Status, newStatus) {
		return fmt.Errorf("JobExecution (ID: %s): Invalid state transition: %s -> %s", je.ID, je.Status, newStatus)
	}
	je.Status = newStatus
	return nil
}

func (je *JobExecution) finish(status JobStatus, exit ExitStatus) {
	if err := je.TransitionTo(status); err != nil {
		logger.Warnf("Could not update JobExecution (ID: %s) status to %s: %v", je.ID, status, err)
		je.Status = status
	}
	je.ExitStatus = exit
	now := time.Now()
	je.EndTime = &now
	je.LastUpdated = now
}

// MarkAsStarted updates the JobExecution status to STARTED.
func (je *JobExecution) MarkAsStarted() {
	if err := je.TransitionTo(BatchStatusStarted); err != nil {
		logger.Warnf("Could not update JobExecution (ID: %s) status to STARTED: %v", je.ID, err)
		je.Status = BatchStatusStarted
	}
	je.LastUpdated = time.Now()
}

// MarkAsCompleted updates the JobExecution status to COMPLETED.
func (je *JobExecution) MarkAsCompleted() {
	je.finish(BatchStatusCompleted, ExitStatusCompleted)
}

// MarkAsFailed updates the JobExecution status to FAILED and records err.
func (je *JobExecution) MarkAsFailed(err error) {
	je.finish(BatchStatusFailed, ExitStatusFailed)
	je.AddFailureException(err)
}

// MarkAsStopped updates the JobExecution status to STOPPED.
func (je *JobExecution) MarkAsStopped() {
	je.finish(BatchStatusStopped, ExitStatusStopped)
}

// AddFailureException records err once; duplicate messages are ignored.
func (je *JobExecution) AddFailureException(err error) {
	if err == nil {
		return
	}
	errMsg := exception.ExtractErrorMessage(err)
	for _, existing := range je.Failures {
		if existing == errMsg {
			logger.Debugf("Skipped adding duplicate error '%s' to JobExecution (ID: %s).", errMsg, je.ID)
			return
		}
	}
	je.Failures = append(je.Failures, errMsg)
	je.Errors = append(je.Errors, err)
	je.LastUpdated = time.Now()
}

// AddStepExecution adds a StepExecution to JobExecution.
func (je *JobExecution) AddStepExecution(se *StepExecution) {
	je.StepExecutions = append(je.StepExecutions, se)
}

// FindStepExecution returns the latest StepExecution for stepName.
func (je *JobExecution) FindStepExecution(stepName string) (*StepExecution, bool) {
	for i := len(je.StepExecutions) - 1; i >= 0; i-- {
		if je.StepExecutions[i].StepName == stepName {
			return je.StepExecutions[i], true
		}
	}
	return nil, false
}

// NewStepExecution creates a new StepExecution in STARTING state.
func NewStepExecution(id string, jobExecution *JobExecution, stepName string) *StepExecution {
	now := time.Now()
	return &StepExecution{
		ID:               id,
		StepName:         stepName,
		JobExecutionID:   jobExecution.ID,
		JobExecution:     jobExecution,
		StartTime:        now,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		Failures:         make(FailureList, 0),
		ExecutionContext: NewExecutionContext(),
		LastUpdated:      now,
	}
}

func isValidStepTransition(current, next JobStatus) bool {
	switch current {
	case BatchStatusStarting:
		return next == BatchStatusStarted || next == BatchStatusFailed || next == BatchStatusStopped || next == BatchStatusAbandoned
	case BatchStatusStarted:
		return next == BatchStatusCompleted || next == BatchStatusFailed || next == BatchStatusStopped || next == BatchStatusAbandoned
	default:
		return false
	}
}

// TransitionTo moves the StepExecution to newStatus or returns an error for an illegal transition.
func (se *StepExecution) TransitionTo(newStatus JobStatus) error {
	if !isValidStepTransition(se.Status, newStatus) {
		return fmt.Errorf("StepExecution (ID: %s): Invalid state transition: %s -> %s", se.ID, se.Status, newStatus)
	}
	se.Status = newStatus
	return nil
}

func (se *StepExecution) finish(status JobStatus, exit ExitStatus) {
	if err := se.TransitionTo(status); err != nil {
		logger.Warnf("Could not update StepExecution (ID: %s) status to %s: %v", se.ID, status, err)
		se.Status = status
	}
	se.ExitStatus = exit
	now := time.Now()
	se.EndTime = &now
	se.LastUpdated = now
}

// MarkAsStarted updates the StepExecution status to STARTED.
func (se *StepExecution) MarkAsStarted() {
	if err := se.TransitionTo(BatchStatusStarted); err != nil {
		logger.Warnf("Could not update StepExecution (ID: %s) status to STARTED: %v", se.ID, err)
		se.Status = BatchStatusStarted
	}
	se.LastUpdated = time.Now()
}

// MarkAsCompleted updates the StepExecution status to COMPLETED.
func (se *StepExecution) MarkAsCompleted() {
	se.finish(BatchStatusCompleted, ExitStatusCompleted)
}

// MarkAsFailed updates the StepExecution status to FAILED and records err.
func (se *StepExecution) MarkAsFailed(err error) {
	se.finish(BatchStatusFailed, ExitStatusFailed)
	se.AddFailureException(err)
}

// MarkAsStopped updates the StepExecution status to STOPPED.
func (se *StepExecution) MarkAsStopped() {
	se.finish(BatchStatusStopped, ExitStatusStopped)
}

// AddFailureException records err once; duplicate messages are ignored.
func (se *StepExecution) AddFailureException(err error) {
	if err == nil {
		return
	}
	errMsg := exception.ExtractErrorMessage(err)
	for _, existing := range se.Failures {
		if existing == errMsg {
			return
		}
	}
	se.Failures = append(se.Failures, errMsg)
	se.LastUpdated = time.Now()
}

// DebugString returns a one-line summary of the StepExecution without its context values.
func (se *StepExecution) DebugString() string {
	endTime := "nil"
	if se.EndTime != nil {
		endTime = se.EndTime.Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("&{ID:%s StepName:%s Status:%s ExitStatus:%s Start:%s End:%s Read:%d Write:%d Filter:%d Failures:%v ExecutionContext:(%d keys)}",
		se.ID, se.StepName, se.Status, se.ExitStatus, se.StartTime.Format(time.RFC3339Nano), endTime,
		se.ReadCount, se.WriteCount, se.FilterCount, se.Failures, len(se.ExecutionContext))
}
