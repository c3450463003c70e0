package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weatheretl/pkg/batch/core/domain/repository"
)

func TestInMemoryJobRepository_JobAndSteps(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryJobRepository()

	je := model.NewJobExecution("weatherEtlJob", model.NewJobParameters())
	require.NoError(t, repo.SaveJobExecution(ctx, je))
	assert.Error(t, repo.SaveJobExecution(ctx, je))

	first := model.NewStepExecution(model.NewID(), je, "fetchStep")
	second := model.NewStepExecution(model.NewID(), je, "normalizeStep")
	second.StartTime = first.StartTime.Add(time.Second)
	require.NoError(t, repo.SaveStepExecution(ctx, second))
	require.NoError(t, repo.SaveStepExecution(ctx, first))

	found, err := repo.FindJobExecutionByID(ctx, je.ID)
	require.NoError(t, err)
	require.Len(t, found.StepExecutions, 2)
	assert.Equal(t, "fetchStep", found.StepExecutions[0].StepName)
	assert.Equal(t, "normalizeStep", found.StepExecutions[1].StepName)

	first.MarkAsCompleted()
	require.NoError(t, repo.UpdateStepExecution(ctx, first))
	se, err := repo.FindStepExecutionByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, se.Status)
}

func TestInMemoryJobRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryJobRepository()

	_, err := repo.FindJobExecutionByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrJobExecutionNotFound)

	_, err = repo.FindLatestJobExecution(ctx, "weatherEtlJob")
	assert.ErrorIs(t, err, repository.ErrJobExecutionNotFound)

	err = repo.UpdateJobExecution(ctx, model.NewJobExecution("x", model.NewJobParameters()))
	assert.ErrorIs(t, err, repository.ErrJobExecutionNotFound)

	_, err = repo.FindStepExecutionByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrStepExecutionNotFound)
}

func TestInMemoryJobRepository_FindLatest(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryJobRepository()

	older := model.NewJobExecution("weatherEtlJob", model.NewJobParameters())
	newer := model.NewJobExecution("weatherEtlJob", model.NewJobParameters())
	newer.CreateTime = older.CreateTime.Add(time.Minute)
	require.NoError(t, repo.SaveJobExecution(ctx, newer))
	require.NoError(t, repo.SaveJobExecution(ctx, older))

	latest, err := repo.FindLatestJobExecution(ctx, "weatherEtlJob")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)
}
