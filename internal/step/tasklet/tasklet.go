// Package tasklet implements the pipeline stages as batch tasklets.
//
// Each stage publishes the file it produced under OutputPathKey in its step
// context. job.yaml promotes that key to a stage-specific job key, where the
// next stage picks it up.
package tasklet

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/tigerroll/weatheretl/internal/domain/entity"
	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
)

// OutputPathKey is the step context key holding the file a stage wrote.
const OutputPathKey = "output.path"

// Job context keys the output paths are promoted to.
const (
	RawPathKey       = "pipeline.raw_path"
	ProcessedPathKey = "pipeline.processed_path"
)

// InputParam is the job parameter that overrides a standalone stage's input file.
const InputParam = "input"

// baseTasklet holds the execution context shared by all stage tasklets.
type baseTasklet struct {
	ec model.ExecutionContext
}

func newBaseTasklet() baseTasklet {
	return baseTasklet{ec: model.NewExecutionContext()}
}

func (b *baseTasklet) Close(ctx context.Context) error { return nil }

func (b *baseTasklet) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	if ec != nil {
		b.ec = ec
	}
	return nil
}

func (b *baseTasklet) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return b.ec, nil
}

// resolveInput picks the stage input: the "input" job parameter, then the path
// promoted by the previous stage, then the newest matching file.
func resolveInput(stepExecution *model.StepExecution, jobKey string, latest func() (string, error)) (string, error) {
	if je := stepExecution.JobExecution; je != nil {
		if p, ok := je.Parameters.GetString(InputParam); ok && p != "" {
			return p, nil
		}
		if p, ok := je.ExecutionContext.GetString(jobKey); ok && p != "" {
			return p, nil
		}
	}
	return latest()
}

// PrintPreview writes a short summary of obs to w. Rain is shown only when present.
func PrintPreview(w io.Writer, obs entity.Observation) {
	fmt.Fprintln(w, "Record preview:")
	fmt.Fprintf(w, "  UTC:      %s\n", obs.ObsTimestampUTC.Format(time.RFC3339))
	fmt.Fprintf(w, "  Local:    %s\n", obs.ObsTimestampLocal.Format(time.RFC3339))
	fmt.Fprintf(w, "  Temp:     %s\n", preview(obs.Temp))
	fmt.Fprintf(w, "  Weather:  %s\n", previewString(obs.WeatherMain))
	fmt.Fprintf(w, "  Humidity: %s\n", preview(obs.Humidity))
	if obs.RainMM != nil {
		fmt.Fprintf(w, "  Rain:     %s mm\n", preview(obs.RainMM))
	}
}

func preview(v *float64) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%g", *v)
}

func previewString(v *string) string {
	if v == nil {
		return "null"
	}
	return *v
}
