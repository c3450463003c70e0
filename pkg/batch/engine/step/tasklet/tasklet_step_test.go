package tasklet

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weatheretl/pkg/batch/infrastructure/repository/inmemory"
)

type stubTasklet struct {
	ec       model.ExecutionContext
	err      error
	closeErr error
	closed   bool
	put      map[string]interface{}
}

func (t *stubTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	for k, v := range t.put {
		t.ec.PutNested(k, v)
	}
	if t.err != nil {
		return model.ExitStatusFailed, t.err
	}
	return model.ExitStatusCompleted, nil
}

func (t *stubTasklet) Close(ctx context.Context) error {
	t.closed = true
	return t.closeErr
}

func (t *stubTasklet) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	t.ec = ec
	return nil
}

func (t *stubTasklet) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return t.ec, nil
}

type recordingListener struct{ events []string }

func (l *recordingListener) BeforeStep(ctx context.Context, se *model.StepExecution) {
	l.events = append(l.events, "before:"+se.Status.String())
}

func (l *recordingListener) AfterStep(ctx context.Context, se *model.StepExecution) {
	l.events = append(l.events, "after:"+se.Status.String())
}

func newExecutions(t *testing.T, repo *inmemory.InMemoryJobRepository) (*model.JobExecution, *model.StepExecution) {
	t.Helper()
	je := model.NewJobExecution("job", model.NewJobParameters())
	require.NoError(t, repo.SaveJobExecution(context.Background(), je))
	se := model.NewStepExecution(model.NewID(), je, "fetchStep")
	require.NoError(t, repo.SaveStepExecution(context.Background(), se))
	return je, se
}

func TestTaskletStep_Success(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	je, se := newExecutions(t, repo)

	tl := &stubTasklet{put: map[string]interface{}{"fetch.raw_path": "data/raw/a.csv"}}
	listener := &recordingListener{}
	step := NewTaskletStep("fetchStep", tl, repo, nil, nil, nil, nil)
	step.stepExecutionListeners = append(step.stepExecutionListeners, listener)

	err := step.Execute(context.Background(), je, se)
	require.NoError(t, err)

	assert.Equal(t, model.BatchStatusCompleted, se.Status)
	assert.Equal(t, model.ExitStatusCompleted, se.ExitStatus)
	assert.NotNil(t, se.EndTime)
	assert.True(t, tl.closed)
	assert.Equal(t, []string{"before:STARTED", "after:COMPLETED"}, listener.events)

	path, ok := se.ExecutionContext.GetString("fetch.raw_path")
	assert.True(t, ok)
	assert.Equal(t, "data/raw/a.csv", path)

	stored, err := repo.FindStepExecutionByID(context.Background(), se.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, stored.Status)
}

func TestTaskletStep_Failure(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	je, se := newExecutions(t, repo)

	tl := &stubTasklet{err: errors.New("upstream returned 500")}
	step := NewTaskletStep("fetchStep", tl, repo, nil, nil, nil, nil)

	err := step.Execute(context.Background(), je, se)
	require.Error(t, err)

	assert.Equal(t, model.BatchStatusFailed, se.Status)
	assert.Equal(t, model.ExitStatusFailed, se.ExitStatus)
	assert.True(t, tl.closed)
	assert.Len(t, se.Failures, 1)
}

func TestTaskletStep_CloseErrorFailsStep(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	je, se := newExecutions(t, repo)

	tl := &stubTasklet{closeErr: errors.New("close failed")}
	step := NewTaskletStep("fetchStep", tl, repo, nil, nil, nil, nil)

	err := step.Execute(context.Background(), je, se)
	require.Error(t, err)
	assert.Equal(t, model.BatchStatusFailed, se.Status)
}

func TestTaskletStep_Cancelled(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	je, se := newExecutions(t, repo)

	tl := &stubTasklet{err: context.Canceled}
	step := NewTaskletStep("fetchStep", tl, repo, nil, nil, nil, nil)

	err := step.Execute(context.Background(), je, se)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, model.BatchStatusStopped, se.Status)
}
