// Package job builds the weather pipeline FlowJob from its JSL definition.
package job

import (
	"os"

	"go.uber.org/fx"

	weatherconfig "github.com/tigerroll/weatheretl/internal/config"
	"github.com/tigerroll/weatheretl/internal/step/tasklet"
	"github.com/tigerroll/weatheretl/pkg/batch/component/tasklet/migration"
	port "github.com/tigerroll/weatheretl/pkg/batch/core/application/port"
	config "github.com/tigerroll/weatheretl/pkg/batch/core/config"
	jsl "github.com/tigerroll/weatheretl/pkg/batch/core/config/jsl"
	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/weatheretl/pkg/batch/core/domain/repository"
	"github.com/tigerroll/weatheretl/pkg/batch/core/job/runner"
	metrics "github.com/tigerroll/weatheretl/pkg/batch/core/metrics"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

const moduleName = "job_factory"

// Step IDs of the pipeline in job.yaml.
const (
	MigrateStep   = "migrateStep"
	FetchStep     = "fetchStep"
	NormalizeStep = "normalizeStep"
	LoadStep      = "loadStep"
	ExportStep    = "exportStep"
)

// FactoryParams are the fx inputs of NewFactory.
type FactoryParams struct {
	fx.In
	Config         *config.Config
	Weather        *weatherconfig.WeatherConfig
	Definition     jsl.JSLDefinitionBytes
	Repository     repository.JobRepository
	MetricRecorder metrics.MetricRecorder
	Tracer         metrics.Tracer
	Tasklets       []jsl.NamedTaskletBuilder      `group:"tasklet_builders"`
	StepListeners  []jsl.NamedStepListenerBuilder `group:"step_listener_builders"`
	JobListeners   []jsl.NamedJobListenerBuilder  `group:"job_listener_builders"`
}

// Factory turns the JSL definition into runnable jobs.
type Factory struct {
	cfg           *config.Config
	definition    jsl.Job
	repo          repository.JobRepository
	recorder      metrics.MetricRecorder
	tracer        metrics.Tracer
	tasklets      map[string]jsl.TaskletBuilder
	stepListeners map[string]jsl.StepExecutionListenerBuilder
	jobListeners  map[string]jsl.JobExecutionListenerBuilder
}

// NewFactory parses the definition and indexes the registered builders by ref.
// Migration steps without a dbRef migrate weather.db_ref, the database the
// loader writes to.
func NewFactory(p FactoryParams) (*Factory, error) {
	def, err := jsl.ParseJSL(p.Definition)
	if err != nil {
		return nil, err
	}
	if p.Config != nil {
		if name := p.Config.Surfin.Batch.JobName; name != "" && name != def.ID {
			return nil, exception.NewBatchErrorf(moduleName, "job '%s' is not defined; the job definition declares '%s'", name, def.ID)
		}
	}
	f := &Factory{
		cfg:           p.Config,
		definition:    def,
		repo:          p.Repository,
		recorder:      p.MetricRecorder,
		tracer:        p.Tracer,
		tasklets:      make(map[string]jsl.TaskletBuilder, len(p.Tasklets)),
		stepListeners: make(map[string]jsl.StepExecutionListenerBuilder, len(p.StepListeners)),
		jobListeners:  make(map[string]jsl.JobExecutionListenerBuilder, len(p.JobListeners)),
	}
	for _, b := range p.Tasklets {
		if _, dup := f.tasklets[b.Ref]; dup {
			return nil, exception.NewBatchErrorf(moduleName, "tasklet builder '%s' registered twice", b.Ref)
		}
		f.tasklets[b.Ref] = b.Builder
	}
	for _, b := range p.StepListeners {
		f.stepListeners[b.Ref] = b.Builder
	}
	for _, b := range p.JobListeners {
		f.jobListeners[b.Ref] = b.Builder
	}
	if p.Weather != nil {
		for id, step := range def.Flow.Elements {
			if step.Tasklet.Ref == migration.TaskletRef && step.Tasklet.Properties["dbRef"] == "" {
				if err := f.SetProperty(id, "dbRef", p.Weather.DBRef); err != nil {
					return nil, err
				}
			}
		}
	}
	return f, nil
}

// Definition returns the parsed job definition.
func (f *Factory) Definition() jsl.Job { return f.definition }

// SetProperty overrides one tasklet property of stepID for subsequent builds.
func (f *Factory) SetProperty(stepID, key, value string) error {
	step, ok := f.definition.Flow.Elements[stepID]
	if !ok {
		return exception.NewBatchErrorf(moduleName, "step '%s' not found", stepID)
	}
	props := make(map[string]string, len(step.Tasklet.Properties)+1)
	for k, v := range step.Tasklet.Properties {
		props[k] = v
	}
	props[key] = value
	step.Tasklet.Properties = props
	elements := make(map[string]jsl.Step, len(f.definition.Flow.Elements))
	for id, s := range f.definition.Flow.Elements {
		elements[id] = s
	}
	elements[stepID] = step
	f.definition.Flow.Elements = elements
	return nil
}

// Build creates the job. With stepIDs, only those steps run, in the given order.
func (f *Factory) Build(stepIDs ...string) (*runner.FlowJob, error) {
	flow := f.definition.Flow
	if len(stepIDs) > 0 {
		sub, err := flow.Subflow(stepIDs...)
		if err != nil {
			return nil, err
		}
		flow = sub
	}

	flowDef, err := jsl.ConvertJSLToCoreFlow(flow, jsl.ConvertOptions{
		Config:               f.cfg,
		JobRepository:        f.repo,
		TaskletBuilders:      f.tasklets,
		StepListenerBuilders: f.stepListeners,
		MetricRecorder:       f.recorder,
		Tracer:               f.tracer,
	})
	if err != nil {
		return nil, err
	}

	var listeners []port.JobExecutionListener
	for _, ref := range f.definition.Listeners {
		builder, ok := f.jobListeners[ref.Ref]
		if !ok {
			return nil, exception.NewBatchErrorf(moduleName, "JobExecutionListener builder '%s' is not registered", ref.Ref)
		}
		l, err := builder(f.cfg, ref.Properties)
		if err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to build JobExecutionListener '"+ref.Ref+"'", err, false, false)
		}
		listeners = append(listeners, l)
	}

	logger.Debugf("Built job '%s' with steps %v.", f.definition.Name, stepIDs)
	return runner.NewFlowJob(f.definition.ID, f.definition.Name, flowDef, f.repo, listeners,
		f.recorder, f.tracer, ValidateInput), nil
}

// ValidateInput rejects an "input" parameter naming a file that does not exist.
func ValidateInput(params model.JobParameters) error {
	input, ok := params.GetString(tasklet.InputParam)
	if !ok || input == "" {
		return nil
	}
	info, err := os.Stat(input)
	if err != nil {
		return exception.NewBatchError(moduleName, "input file "+input+" not found", err, false, false)
	}
	if info.IsDir() {
		return exception.NewBatchErrorf(moduleName, "input %s is a directory", input)
	}
	return nil
}

// Module provides the job Factory.
var Module = fx.Options(
	fx.Provide(NewFactory),
)
