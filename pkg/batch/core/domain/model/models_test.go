package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionContext_Nested(t *testing.T) {
	ec := NewExecutionContext()
	ec.PutNested("fetch.rawPath", "data/raw/weather_20231114_1513.csv")
	ec.Put("plain.key", 1)

	v, ok := ec.GetString("fetch.rawPath")
	require.True(t, ok)
	assert.Equal(t, "data/raw/weather_20231114_1513.csv", v)

	// A literal dotted key is found before path resolution.
	n, ok := ec.GetInt("plain.key")
	require.True(t, ok)
	assert.Equal(t, 1, n)

	_, ok = ec.GetNested("fetch.missing")
	assert.False(t, ok)
	_, ok = ec.GetNested("fetch.rawPath.deeper")
	assert.False(t, ok)
}

func TestExecutionContext_PutNestedOverwritesScalar(t *testing.T) {
	ec := ExecutionContext{"load": "scalar"}
	ec.PutNested("load.inserted", 1)

	n, ok := ec.GetInt("load.inserted")
	require.True(t, ok)
	assert.Equal(t, 1, n)
}

func TestExecutionContext_GetIntFromJSONFloat(t *testing.T) {
	ec := ExecutionContext{"count": float64(3), "ratio": 0.5}
	n, ok := ec.GetInt("count")
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	_, ok = ec.GetInt("ratio")
	assert.False(t, ok)
}

func TestJobExecution_Lifecycle(t *testing.T) {
	je := NewJobExecution("weatherEtlJob", JobParameters{})
	assert.Equal(t, BatchStatusStarting, je.Status)
	assert.NotNil(t, je.Parameters.Params)

	je.MarkAsStarted()
	assert.Equal(t, BatchStatusStarted, je.Status)

	cause := errors.New("upstream 500")
	je.MarkAsFailed(cause)
	je.AddFailureException(cause)
	assert.Equal(t, BatchStatusFailed, je.Status)
	assert.Equal(t, ExitStatusFailed, je.ExitStatus)
	assert.NotNil(t, je.EndTime)
	assert.Equal(t, FailureList{"upstream 500"}, je.Failures)
	assert.ErrorIs(t, je.Errors[0], cause)
	assert.True(t, je.Status.IsFinished())
}

func TestStepExecution_InvalidTransitionIsForced(t *testing.T) {
	je := NewJobExecution("job", NewJobParameters())
	se := NewStepExecution(NewID(), je, "fetchStep")

	assert.Error(t, se.TransitionTo(BatchStatusCompleted))
	se.MarkAsCompleted()
	assert.Equal(t, BatchStatusCompleted, se.Status)
	assert.Equal(t, ExitStatusCompleted, se.ExitStatus)
}

func TestJobParameters_StringMasksSecrets(t *testing.T) {
	jp := NewJobParameters()
	jp.Put("input.path", "data/raw/x.csv")
	jp.Put("openweather_api_key", "abc123")

	s := jp.String()
	assert.Contains(t, s, "data/raw/x.csv")
	assert.NotContains(t, s, "abc123")
	assert.Equal(t, []string{"input.path", "openweather_api_key"}, jp.Keys())
}

func TestFlowDefinition_TransitionPrecedence(t *testing.T) {
	fd := NewFlowDefinition("a")
	require.NoError(t, fd.AddElement("a", struct{}{}))
	assert.Error(t, fd.AddElement("a", struct{}{}))

	fd.AddTransitionRule("a", Transition{On: "*", Fail: true})
	fd.AddTransitionRule("a", Transition{On: "COMPLETED", To: "b"})

	rule, ok := fd.GetTransitionRule("a", ExitStatusCompleted)
	require.True(t, ok)
	assert.Equal(t, "b", rule.Transition.To)

	rule, ok = fd.GetTransitionRule("a", ExitStatusFailed)
	require.True(t, ok)
	assert.True(t, rule.Transition.Fail)

	_, ok = fd.GetTransitionRule("b", ExitStatusCompleted)
	assert.False(t, ok)
}
