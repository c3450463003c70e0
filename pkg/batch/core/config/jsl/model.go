// Package jsl defines the Job Specification Language (JSL) models.
// A JSL document describes a batch job's steps and the transitions between them in YAML.
package jsl

import (
	port "github.com/tigerroll/weatheretl/pkg/batch/core/application/port"
	config "github.com/tigerroll/weatheretl/pkg/batch/core/config"
	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
)

// JSLDefinitionBytes holds the content of a JSL file.
type JSLDefinitionBytes []byte

// Job is the top-level structure of a JSL file.
type Job struct {
	// ID is the unique identifier for the job.
	ID string `yaml:"id"`
	// Name is the logical name of the job.
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Flow        Flow   `yaml:"flow"`
	// Listeners are JobExecutionListener references applied to this job.
	Listeners []ComponentRef `yaml:"listeners,omitempty"`
}

// Flow is the set of steps of a job and the element the job starts from.
type Flow struct {
	StartElement string `yaml:"start-element"`
	// Elements maps step IDs to step definitions.
	Elements map[string]Step `yaml:"elements"`
}

// Step is a tasklet-oriented step.
type Step struct {
	ID          string       `yaml:"id"`
	Description string       `yaml:"description,omitempty"`
	Tasklet     ComponentRef `yaml:"tasklet"`
	// Transitions are evaluated against the step's exit status, exact match first.
	Transitions []model.Transition `yaml:"transitions,omitempty"`
	// Listeners are StepExecutionListener references applied to this step.
	Listeners                 []ComponentRef                   `yaml:"listeners,omitempty"`
	ExecutionContextPromotion *model.ExecutionContextPromotion `yaml:"execution-context-promotion,omitempty"`
}

// ComponentRef refers to a registered component builder.
type ComponentRef struct {
	// Ref is the name the builder is registered under.
	Ref string `yaml:"ref"`
	// Properties are passed to the builder as-is.
	Properties map[string]string `yaml:"properties,omitempty"`
}

// TaskletBuilder builds a Tasklet from JSL properties.
type TaskletBuilder func(cfg *config.Config, properties map[string]string) (port.Tasklet, error)

// StepExecutionListenerBuilder builds a StepExecutionListener from JSL properties.
type StepExecutionListenerBuilder func(cfg *config.Config, properties map[string]string) (port.StepExecutionListener, error)

// JobExecutionListenerBuilder builds a JobExecutionListener from JSL properties.
type JobExecutionListenerBuilder func(cfg *config.Config, properties map[string]string) (port.JobExecutionListener, error)

// Value groups that component modules provide their builders into.
const (
	TaskletBuilderGroup      = "tasklet_builders"
	StepListenerBuilderGroup = "step_listener_builders"
	JobListenerBuilderGroup  = "job_listener_builders"
)

// NamedTaskletBuilder registers a TaskletBuilder under the ref used in job.yaml.
type NamedTaskletBuilder struct {
	Ref     string
	Builder TaskletBuilder
}

// NamedStepListenerBuilder registers a StepExecutionListenerBuilder under a ref.
type NamedStepListenerBuilder struct {
	Ref     string
	Builder StepExecutionListenerBuilder
}

// NamedJobListenerBuilder registers a JobExecutionListenerBuilder under a ref.
type NamedJobListenerBuilder struct {
	Ref     string
	Builder JobExecutionListenerBuilder
}
