package tasklet

import (
	"context"
	"fmt"
	"io"

	weatherconfig "github.com/tigerroll/weatheretl/internal/config"
	"github.com/tigerroll/weatheretl/internal/normalize"
	port "github.com/tigerroll/weatheretl/pkg/batch/core/application/port"
	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

// NormalizeTasklet turns a raw snapshot into a processed file.
type NormalizeTasklet struct {
	baseTasklet
	rawDir       string
	processedDir string
	console      io.Writer
}

// NewNormalizeTasklet creates a NormalizeTasklet.
func NewNormalizeTasklet(cfg *weatherconfig.WeatherConfig, console io.Writer) *NormalizeTasklet {
	return &NormalizeTasklet{
		baseTasklet:  newBaseTasklet(),
		rawDir:       cfg.RawDir,
		processedDir: cfg.ProcessedDir,
		console:      console,
	}
}

// Execute coerces the raw snapshot and writes the processed file, whose path
// becomes the step's output.
func (t *NormalizeTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	input, err := resolveInput(stepExecution, RawPathKey, func() (string, error) {
		return normalize.LatestRaw(t.rawDir)
	})
	if err != nil {
		return model.ExitStatusFailed, err
	}
	logger.Infof("Normalizing %s.", input)

	path, obs, err := normalize.File(input, t.processedDir)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	stepExecution.ReadCount = len(obs)
	stepExecution.WriteCount = len(obs)
	t.ec.PutNested(OutputPathKey, path)

	fmt.Fprintf(t.console, "Processed file generated: %s\n", path)
	PrintPreview(t.console, obs[0])
	return model.ExitStatusCompleted, nil
}

var _ port.Tasklet = (*NormalizeTasklet)(nil)
