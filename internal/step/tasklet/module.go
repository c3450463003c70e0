package tasklet

import (
	"io"
	"os"

	"go.uber.org/fx"

	weatherconfig "github.com/tigerroll/weatheretl/internal/config"
	database "github.com/tigerroll/weatheretl/pkg/batch/adapter/database"
	"github.com/tigerroll/weatheretl/pkg/batch/adapter/storage"
	port "github.com/tigerroll/weatheretl/pkg/batch/core/application/port"
	config "github.com/tigerroll/weatheretl/pkg/batch/core/config"
	jsl "github.com/tigerroll/weatheretl/pkg/batch/core/config/jsl"
	metrics "github.com/tigerroll/weatheretl/pkg/batch/core/metrics"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/exception"
)

// Tasklet refs used in job.yaml.
const (
	FetchRef     = "fetchTasklet"
	NormalizeRef = "normalizeTasklet"
	LoadRef      = "loadTasklet"
	ExportRef    = "exportTasklet"
)

// Deps are the collaborators shared by the stage tasklet builders.
type Deps struct {
	fx.In
	Weather         *weatherconfig.WeatherConfig
	DBResolver      database.DBConnectionResolver
	StorageResolver storage.StorageConnectionResolver
	Recorder        metrics.MetricRecorder
}

// Builders returns the stage tasklet builders writing their console output to console.
func Builders(d Deps, console io.Writer) []jsl.NamedTaskletBuilder {
	return []jsl.NamedTaskletBuilder{
		{Ref: FetchRef, Builder: func(_ *config.Config, _ map[string]string) (port.Tasklet, error) {
			return NewFetchTasklet(d.Weather, nil, d.Recorder, console)
		}},
		{Ref: NormalizeRef, Builder: func(_ *config.Config, _ map[string]string) (port.Tasklet, error) {
			return NewNormalizeTasklet(d.Weather, console), nil
		}},
		{Ref: LoadRef, Builder: func(_ *config.Config, properties map[string]string) (port.Tasklet, error) {
			var props LoadProperties
			if err := configbinder.BindProperties(properties, &props); err != nil {
				return nil, exception.NewBatchError("loader", "failed to bind load tasklet properties", err, false, false)
			}
			return NewLoadTasklet(d.Weather, props, d.DBResolver, d.Recorder, console), nil
		}},
		{Ref: ExportRef, Builder: func(_ *config.Config, properties map[string]string) (port.Tasklet, error) {
			var props ExportProperties
			if err := configbinder.BindProperties(properties, &props); err != nil {
				return nil, exception.NewBatchError(exportModule, "failed to bind export tasklet properties", err, false, false)
			}
			return NewExportTasklet(d.Weather, props, d.StorageResolver, console)
		}},
	}
}

type builderResult struct {
	fx.Out
	Builders []jsl.NamedTaskletBuilder `group:"tasklet_builders,flatten"`
}

func provideBuilders(d Deps) builderResult {
	return builderResult{Builders: Builders(d, os.Stdout)}
}

// Module registers the stage tasklet builders.
var Module = fx.Options(
	fx.Provide(provideBuilders),
)
