// Package app wires the weather pipeline with fx and runs one job execution.
package app

import (
	"context"
	"io/fs"
	"strings"

	"go.uber.org/fx"

	weatherconfig "github.com/tigerroll/weatheretl/internal/config"
	"github.com/tigerroll/weatheretl/internal/job"
	"github.com/tigerroll/weatheretl/internal/step/tasklet"
	database "github.com/tigerroll/weatheretl/pkg/batch/adapter/database"
	gormadapter "github.com/tigerroll/weatheretl/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/weatheretl/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/weatheretl/pkg/batch/adapter/database/gorm/postgres"
	"github.com/tigerroll/weatheretl/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/weatheretl/pkg/batch/adapter/storage"
	"github.com/tigerroll/weatheretl/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/weatheretl/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/weatheretl/pkg/batch/component/tasklet/migration"
	port "github.com/tigerroll/weatheretl/pkg/batch/core/application/port"
	config "github.com/tigerroll/weatheretl/pkg/batch/core/config"
	jsl "github.com/tigerroll/weatheretl/pkg/batch/core/config/jsl"
	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weatheretl/pkg/batch/core/job/runner"
	metrics "github.com/tigerroll/weatheretl/pkg/batch/core/metrics"
	metricsinfra "github.com/tigerroll/weatheretl/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/weatheretl/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/weatheretl/pkg/batch/listener/logging"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

// DefaultDBAdapters is used when DB_ADAPTERS is unset.
const DefaultDBAdapters = "sqlite"

// DBProviderMap lists the database providers selectable through DB_ADAPTERS.
var DBProviderMap = map[string]func(cfg *config.Config) database.DBProvider{
	"postgres": postgres.NewProvider,
	"mysql":    mysql.NewProvider,
	"sqlite":   sqlite.NewProvider,
}

// DBProviderOptions registers the providers named in the comma-separated adapters list.
func DBProviderOptions(adapters string) []fx.Option {
	if strings.TrimSpace(adapters) == "" {
		adapters = DefaultDBAdapters
	}
	var options []fx.Option
	for _, name := range strings.Split(adapters, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		provider, ok := DBProviderMap[name]
		if !ok {
			logger.Warnf("DB provider '%s' is not supported. Skipping.", name)
			continue
		}
		options = append(options, fx.Provide(fx.Annotate(provider, fx.ResultTags(`group:"`+database.DBProviderGroup+`"`))))
		logger.Debugf("DB provider '%s' registered.", name)
	}
	return options
}

// Options are the inputs of one pipeline run.
type Options struct {
	EnvFilePath string
	Config      config.EmbeddedConfig
	JSL         jsl.JSLDefinitionBytes
	// MigrationsFS holds one directory of migrations per database type.
	MigrationsFS fs.FS
	DBProviders  []fx.Option
	// Steps restricts the run to these step IDs. Empty runs the whole flow.
	Steps []string
	// Properties overrides tasklet properties, keyed by step ID.
	Properties map[string]map[string]string
	Params     model.JobParameters
}

type launch struct {
	done      chan struct{}
	execution *model.JobExecution
}

// Run starts the container, executes the job once, and stops the container.
// The returned execution carries the final status, and the caller maps it to
// an exit code.
func Run(ctx context.Context, opts Options) (*model.JobExecution, error) {
	l := &launch{done: make(chan struct{})}
	app := fx.New(
		logger.Module,
		fx.Supply(opts.Config, opts.JSL),
		fx.Supply(fx.Annotated{Name: "envFilePath", Target: opts.EnvFilePath}),
		fx.Provide(fx.Annotate(
			func() fs.FS { return opts.MigrationsFS },
			fx.ResultTags(migration.MigrationFSTag),
		)),
		fx.Provide(weatherconfig.Load),

		config.Module,
		fx.Options(opts.DBProviders...),
		gormadapter.Module,
		local.Module,
		gcs.Module,
		storage.Module,
		metricsinfra.Module,
		inmemory.Module,
		runner.Module,

		logging.Module,
		migration.Module,
		tasklet.Module,
		job.Module,

		fx.Invoke(func(lc fx.Lifecycle, sd fx.Shutdowner, factory *job.Factory, jobRunner port.JobRunner, recorder metrics.MetricRecorder) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					return start(ctx, l, opts, factory, jobRunner, recorder, sd)
				},
				OnStop: func(context.Context) error {
					logger.Debugf("Application is shutting down.")
					return nil
				},
			})
		}),
	)
	if err := app.Err(); err != nil {
		return nil, exception.NewBatchError("app", "failed to build application", err, false, false)
	}

	startCtx, cancelStart := context.WithTimeout(ctx, app.StartTimeout())
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		return nil, exception.NewBatchError("app", "failed to start application", err, false, false)
	}

	select {
	case <-app.Wait():
	case <-l.done:
	}
	<-l.done

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		logger.Warnf("Application stop reported: %v", err)
	}
	return l.execution, nil
}

// Result maps a finished execution to the command outcome: nil when the job
// completed, otherwise an error naming the failed step and its first failure.
func Result(je *model.JobExecution) error {
	if je == nil {
		return exception.NewBatchErrorf("app", "job did not run")
	}
	if je.Status == model.BatchStatusCompleted {
		return nil
	}
	if se, ok := je.FindStepExecution(je.CurrentStepName); ok && len(se.Failures) > 0 {
		return exception.NewBatchErrorf("app", "job '%s' finished with status %s: step '%s' failed: %s",
			je.JobName, je.Status, se.StepName, se.Failures[0])
	}
	if len(je.Failures) > 0 {
		return exception.NewBatchErrorf("app", "job '%s' finished with status %s: %s", je.JobName, je.Status, je.Failures[0])
	}
	return exception.NewBatchErrorf("app", "job '%s' finished with status %s", je.JobName, je.Status)
}

// SchemaVersion returns the schema version reported by the migration step stepID.
func SchemaVersion(je *model.JobExecution, stepID string) (int, bool) {
	if je == nil {
		return 0, false
	}
	se, ok := je.FindStepExecution(stepID)
	if !ok {
		return 0, false
	}
	return se.ExecutionContext.GetInt(migration.VersionKey)
}

// start builds the job synchronously, so definition errors fail startup, and
// runs it in the background. Shutdown is requested once the job has finished.
func start(ctx context.Context, l *launch, opts Options, factory *job.Factory, jobRunner port.JobRunner, recorder metrics.MetricRecorder, sd fx.Shutdowner) error {
	for stepID, props := range opts.Properties {
		for k, v := range props {
			if err := factory.SetProperty(stepID, k, v); err != nil {
				return err
			}
		}
	}
	jobInstance, err := factory.Build(opts.Steps...)
	if err != nil {
		return err
	}
	params := opts.Params
	if params.Params == nil {
		params = model.NewJobParameters()
	}

	go func() {
		defer close(l.done)
		je := model.NewJobExecution(jobInstance.JobName(), params)
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("Panic recovered in job execution: %v", r)
				je.MarkAsFailed(exception.NewBatchErrorf("app", "panic: %v", r))
			}
			l.execution = je
			if err := recorder.Flush(context.Background()); err != nil {
				logger.Warnf("Failed to flush metrics: %v", err)
			}
			code := 0
			if je.Status != model.BatchStatusCompleted {
				code = 1
			}
			if err := sd.Shutdown(fx.ExitCode(code)); err != nil {
				logger.Errorf("Failed to shut down application: %v", err)
			}
		}()

		logger.Infof("Launching job '%s' with parameters %s.", jobInstance.JobName(), params.String())
		jobRunner.Run(ctx, jobInstance, je)
	}()
	return nil
}
