package jsl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/weatheretl/pkg/batch/core/application/port"
	config "github.com/tigerroll/weatheretl/pkg/batch/core/config"
	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weatheretl/pkg/batch/infrastructure/repository/inmemory"
)

const pipelineJSL = `
id: weatherEtlJob
name: weatherEtlJob
flow:
  start-element: fetchStep
  elements:
    fetchStep:
      id: fetchStep
      tasklet:
        ref: fetchTasklet
        properties:
          timeout: 20s
      execution-context-promotion:
        job-level-keys:
          raw_path: pipeline.raw_path
      transitions:
        - on: COMPLETED
          to: normalizeStep
        - on: "*"
          fail: true
    normalizeStep:
      id: normalizeStep
      tasklet:
        ref: normalizeTasklet
      transitions:
        - on: COMPLETED
          to: loadStep
        - on: "*"
          fail: true
    loadStep:
      id: loadStep
      tasklet:
        ref: loadTasklet
      transitions:
        - on: COMPLETED
          end: true
        - on: "*"
          fail: true
`

type nopTasklet struct{ ec model.ExecutionContext }

func (t *nopTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	return model.ExitStatusCompleted, nil
}
func (t *nopTasklet) Close(ctx context.Context) error { return nil }
func (t *nopTasklet) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	t.ec = ec
	return nil
}
func (t *nopTasklet) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return t.ec, nil
}

func nopBuilder(cfg *config.Config, properties map[string]string) (port.Tasklet, error) {
	return &nopTasklet{}, nil
}

func TestParseJSL(t *testing.T) {
	job, err := ParseJSL([]byte(pipelineJSL))
	require.NoError(t, err)

	assert.Equal(t, "weatherEtlJob", job.ID)
	assert.Equal(t, "fetchStep", job.Flow.StartElement)
	require.Len(t, job.Flow.Elements, 3)

	fetch := job.Flow.Elements["fetchStep"]
	assert.Equal(t, "fetchTasklet", fetch.Tasklet.Ref)
	assert.Equal(t, "20s", fetch.Tasklet.Properties["timeout"])
	require.NotNil(t, fetch.ExecutionContextPromotion)
	assert.Equal(t, "pipeline.raw_path", fetch.ExecutionContextPromotion.JobLevelKeys["raw_path"])
	require.Len(t, fetch.Transitions, 2)
	assert.Equal(t, "normalizeStep", fetch.Transitions[0].To)
	assert.True(t, fetch.Transitions[1].Fail)
}

func TestParseJSL_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing id":        "name: x\nflow:\n  start-element: a\n  elements:\n    a:\n      id: a\n      tasklet:\n        ref: t\n",
		"bad start element": "id: x\nname: x\nflow:\n  start-element: b\n  elements:\n    a:\n      id: a\n      tasklet:\n        ref: t\n",
		"id mismatch":       "id: x\nname: x\nflow:\n  start-element: a\n  elements:\n    a:\n      id: z\n      tasklet:\n        ref: t\n",
		"unknown target":    "id: x\nname: x\nflow:\n  start-element: a\n  elements:\n    a:\n      id: a\n      tasklet:\n        ref: t\n      transitions:\n        - on: COMPLETED\n          to: nowhere\n",
		"not yaml":          "id: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJSL([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestConvertJSLToCoreFlow(t *testing.T) {
	job, err := ParseJSL([]byte(pipelineJSL))
	require.NoError(t, err)

	flow, err := ConvertJSLToCoreFlow(job.Flow, ConvertOptions{
		Config:        config.NewConfig(),
		JobRepository: inmemory.NewInMemoryJobRepository(),
		TaskletBuilders: map[string]TaskletBuilder{
			"fetchTasklet":     nopBuilder,
			"normalizeTasklet": nopBuilder,
			"loadTasklet":      nopBuilder,
		},
	})
	require.NoError(t, err)

	assert.Len(t, flow.Elements, 3)
	step, ok := flow.Elements["fetchStep"].(port.Step)
	require.True(t, ok)
	assert.Equal(t, "pipeline.raw_path", step.GetExecutionContextPromotion().JobLevelKeys["raw_path"])

	rule, ok := flow.GetTransitionRule("normalizeStep", model.ExitStatusCompleted)
	require.True(t, ok)
	assert.Equal(t, "loadStep", rule.Transition.To)
}

func TestConvertJSLToCoreFlow_UnknownTasklet(t *testing.T) {
	job, err := ParseJSL([]byte(pipelineJSL))
	require.NoError(t, err)

	_, err = ConvertJSLToCoreFlow(job.Flow, ConvertOptions{
		Config:          config.NewConfig(),
		JobRepository:   inmemory.NewInMemoryJobRepository(),
		TaskletBuilders: map[string]TaskletBuilder{"fetchTasklet": nopBuilder},
	})
	assert.Error(t, err)
}

func TestSubflow(t *testing.T) {
	job, err := ParseJSL([]byte(pipelineJSL))
	require.NoError(t, err)

	single, err := job.Flow.Subflow("normalizeStep")
	require.NoError(t, err)
	assert.Equal(t, "normalizeStep", single.StartElement)
	require.Len(t, single.Elements, 1)
	tr := single.Elements["normalizeStep"].Transitions
	assert.True(t, tr[0].End)
	assert.Empty(t, tr[0].To)
	assert.True(t, tr[1].Fail)

	pair, err := job.Flow.Subflow("fetchStep", "loadStep")
	require.NoError(t, err)
	assert.Equal(t, "loadStep", pair.Elements["fetchStep"].Transitions[0].To)

	_, err = job.Flow.Subflow("exportStep")
	assert.Error(t, err)
}
