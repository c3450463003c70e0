package logging

import (
	"io"
	"os"

	"go.uber.org/fx"

	port "github.com/tigerroll/weatheretl/pkg/batch/core/application/port"
	config "github.com/tigerroll/weatheretl/pkg/batch/core/config"
	jsl "github.com/tigerroll/weatheretl/pkg/batch/core/config/jsl"
	"github.com/tigerroll/weatheretl/pkg/batch/support/util/configbinder"
)

// Refs used in job.yaml.
const (
	JobListenerRef  = "loggingJobListener"
	StepListenerRef = "loggingStepListener"
)

// NewLoggingJobListenerBuilder creates the builder for LoggingJobListener writing to console.
func NewLoggingJobListenerBuilder(console io.Writer) jsl.JobExecutionListenerBuilder {
	return func(_ *config.Config, _ map[string]string) (port.JobExecutionListener, error) {
		return NewLoggingJobListener(console), nil
	}
}

// NewLoggingStepListenerBuilder creates the builder for LoggingStepListener writing to console.
func NewLoggingStepListenerBuilder(console io.Writer) jsl.StepExecutionListenerBuilder {
	return func(_ *config.Config, properties map[string]string) (port.StepExecutionListener, error) {
		var props StepListenerProperties
		if err := configbinder.BindProperties(properties, &props); err != nil {
			return nil, err
		}
		return NewLoggingStepListener(props, console), nil
	}
}

func provideJobListenerBuilder() jsl.NamedJobListenerBuilder {
	return jsl.NamedJobListenerBuilder{Ref: JobListenerRef, Builder: NewLoggingJobListenerBuilder(os.Stdout)}
}

func provideStepListenerBuilder() jsl.NamedStepListenerBuilder {
	return jsl.NamedStepListenerBuilder{Ref: StepListenerRef, Builder: NewLoggingStepListenerBuilder(os.Stdout)}
}

// Module registers the logging listener builders.
var Module = fx.Options(
	fx.Provide(fx.Annotate(provideJobListenerBuilder, fx.ResultTags(`group:"`+jsl.JobListenerBuilderGroup+`"`))),
	fx.Provide(fx.Annotate(provideStepListenerBuilder, fx.ResultTags(`group:"`+jsl.StepListenerBuilderGroup+`"`))),
)
