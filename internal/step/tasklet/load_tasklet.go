package tasklet

import (
	"context"
	"fmt"
	"io"
	"time"

	weatherconfig "github.com/tigerroll/weatheretl/internal/config"
	"github.com/tigerroll/weatheretl/internal/csvfile"
	"github.com/tigerroll/weatheretl/internal/domain/entity"
	"github.com/tigerroll/weatheretl/internal/normalize"
	"github.com/tigerroll/weatheretl/internal/repository"
	database "github.com/tigerroll/weatheretl/pkg/batch/adapter/database"
	port "github.com/tigerroll/weatheretl/pkg/batch/core/application/port"
	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/weatheretl/pkg/batch/core/metrics"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

// InsertedKey is the step context key holding the number of rows inserted.
const InsertedKey = "load.inserted"

// LoadProperties are bound from the load step's tasklet properties.
type LoadProperties struct {
	// DBRef overrides weather.db_ref.
	DBRef string `yaml:"dbRef"`
}

// LoadTasklet upserts a processed file into weather_observation.
type LoadTasklet struct {
	baseTasklet
	resolver     database.DBConnectionResolver
	dbRef        string
	processedDir string
	recorder     metrics.MetricRecorder
	console      io.Writer
}

// NewLoadTasklet creates a LoadTasklet.
func NewLoadTasklet(cfg *weatherconfig.WeatherConfig, props LoadProperties, resolver database.DBConnectionResolver, recorder metrics.MetricRecorder, console io.Writer) *LoadTasklet {
	dbRef := props.DBRef
	if dbRef == "" {
		dbRef = cfg.DBRef
	}
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	return &LoadTasklet{
		baseTasklet:  newBaseTasklet(),
		resolver:     resolver,
		dbRef:        dbRef,
		processedDir: cfg.ProcessedDir,
		recorder:     recorder,
		console:      console,
	}
}

// Execute re-reads the processed file from disk and loads it in one transaction.
// The connection is owned by its provider and closed on shutdown.
func (t *LoadTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	input, err := resolveInput(stepExecution, ProcessedPathKey, func() (string, error) {
		return normalize.LatestProcessed(t.processedDir)
	})
	if err != nil {
		return model.ExitStatusFailed, err
	}
	rows, err := csvfile.ReadRows(input)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	obs, err := normalize.Normalize(rows)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	stepExecution.ReadCount = len(obs)

	conn, err := t.resolver.ResolveDBConnection(ctx, t.dbRef)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError("loader", "failed to connect to database '"+t.dbRef+"'", err, false, false)
	}
	repo := repository.NewObservationRepository(conn)
	inserted, err := repo.Load(ctx, obs)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	stepExecution.WriteCount = int(inserted)
	t.recorder.RecordItemWrite(ctx, stepExecution.StepName, int(inserted))
	t.ec.PutNested(InsertedKey, int(inserted))
	t.ec.PutNested(OutputPathKey, input)

	fmt.Fprintf(t.console, "%d row(s) loaded into table '%s'.\n", inserted, entity.TableName)
	stored, err := repo.FindByTimestamp(ctx, obs[0].ObsTimestampUTC)
	if err != nil || stored == nil {
		logger.Warnf("Could not read back %s row at %s: %v", entity.TableName, obs[0].ObsTimestampUTC.Format(time.RFC3339), err)
		stored = &obs[0]
	}
	// Drivers may hand timestamps back in UTC.
	stored.ObsTimestampLocal = stored.ObsTimestampLocal.In(obs[0].ObsTimestampLocal.Location())
	PrintPreview(t.console, *stored)
	return model.ExitStatusCompleted, nil
}

var _ port.Tasklet = (*LoadTasklet)(nil)
