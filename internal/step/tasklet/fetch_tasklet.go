package tasklet

import (
	"context"
	"io"
	"strconv"
	"time"

	weatherconfig "github.com/tigerroll/weatheretl/internal/config"
	"github.com/tigerroll/weatheretl/internal/openweather"
	port "github.com/tigerroll/weatheretl/pkg/batch/core/application/port"
	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/weatheretl/pkg/batch/core/metrics"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

// FetchDurationMetric is the operation name the API call is timed under.
const FetchDurationMetric = "openweather.fetch"

// FetchTasklet calls the API and writes the raw snapshot.
type FetchTasklet struct {
	baseTasklet
	client   *openweather.Client
	rawDir   string
	loc      *time.Location
	recorder metrics.MetricRecorder
	console  io.Writer
	now      func() time.Time
}

// NewFetchTasklet creates a FetchTasklet. The API key must be set.
func NewFetchTasklet(cfg *weatherconfig.WeatherConfig, client *openweather.Client, recorder metrics.MetricRecorder, console io.Writer) (*FetchTasklet, error) {
	if cfg.APIKey == "" {
		return nil, exception.NewBatchErrorf("fetcher", "OPENWEATHER_API_KEY is not set")
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, exception.NewBatchError("fetcher", "invalid timezone", err, false, false)
	}
	if client == nil {
		client = openweather.NewClient(openweather.ClientConfig{
			Endpoint: cfg.Endpoint,
			APIKey:   cfg.APIKey,
			Lat:      cfg.Lat,
			Lon:      cfg.Lon,
			Units:    cfg.Units,
			Timeout:  cfg.Timeout,
		}, nil)
	}
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	return &FetchTasklet{
		baseTasklet: newBaseTasklet(),
		client:      client,
		rawDir:      cfg.RawDir,
		loc:         loc,
		recorder:    recorder,
		console:     console,
		now:         time.Now,
	}, nil
}

// Execute fetches one observation. Nothing is written unless the API answered 200.
func (t *FetchTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	start := time.Now()
	status, payload, err := t.client.Fetch(ctx)
	t.recorder.RecordDuration(ctx, FetchDurationMetric, time.Since(start), map[string]string{
		"step":   stepExecution.StepName,
		"status": strconv.Itoa(status),
	})
	if err != nil {
		return model.ExitStatusFailed, err
	}

	obs := openweather.BuildRecord(payload, t.now(), t.loc)
	path, err := openweather.WriteRaw(t.rawDir, obs)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	stepExecution.ReadCount = 1
	stepExecution.WriteCount = 1
	t.recorder.RecordItemRead(ctx, stepExecution.StepName, 1)
	t.ec.PutNested(OutputPathKey, path)

	logger.Infof("Raw snapshot for %s written to %s.", obs.ObsTimestampUTC.Format(time.RFC3339), path)
	io.WriteString(t.console, "Saved raw snapshot to: "+path+"\n")
	PrintPreview(t.console, obs)
	return model.ExitStatusCompleted, nil
}

var _ port.Tasklet = (*FetchTasklet)(nil)
