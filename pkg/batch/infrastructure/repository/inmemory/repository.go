// Package inmemory provides a process-local JobRepository.
// Execution history lives only as long as the process, which matches
// one-shot pipeline runs started from the command line.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/fx"

	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weatheretl/pkg/batch/core/domain/repository"
)

// InMemoryJobRepository keeps job and step executions in maps guarded by a mutex.
type InMemoryJobRepository struct {
	mu             sync.RWMutex
	jobExecutions  map[string]*model.JobExecution
	stepExecutions map[string]*model.StepExecution
}

// NewInMemoryJobRepository creates an empty repository.
func NewInMemoryJobRepository() *InMemoryJobRepository {
	return &InMemoryJobRepository{
		jobExecutions:  make(map[string]*model.JobExecution),
		stepExecutions: make(map[string]*model.StepExecution),
	}
}

var _ repository.JobRepository = (*InMemoryJobRepository)(nil)

// SaveJobExecution stores a new JobExecution. Saving an existing ID is an error.
func (r *InMemoryJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobExecutions[jobExecution.ID]; exists {
		return fmt.Errorf("JobExecution with ID %s already exists", jobExecution.ID)
	}
	r.jobExecutions[jobExecution.ID] = jobExecution
	return nil
}

// UpdateJobExecution replaces a stored JobExecution.
func (r *InMemoryJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobExecutions[jobExecution.ID]; !exists {
		return fmt.Errorf("JobExecution with ID %s not found for update: %w", jobExecution.ID, repository.ErrJobExecutionNotFound)
	}
	r.jobExecutions[jobExecution.ID] = jobExecution
	return nil
}

// FindJobExecutionByID returns a copy of the JobExecution with its StepExecutions sorted by start time.
func (r *InMemoryJobRepository) FindJobExecutionByID(ctx context.Context, id string) (*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	je, ok := r.jobExecutions[id]
	if !ok {
		return nil, repository.ErrJobExecutionNotFound
	}
	return r.withSteps(je), nil
}

// FindLatestJobExecution returns the newest JobExecution of jobName.
func (r *InMemoryJobRepository) FindLatestJobExecution(ctx context.Context, jobName string) (*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *model.JobExecution
	for _, je := range r.jobExecutions {
		if je.JobName != jobName {
			continue
		}
		if latest == nil || je.CreateTime.After(latest.CreateTime) {
			latest = je
		}
	}
	if latest == nil {
		return nil, repository.ErrJobExecutionNotFound
	}
	return r.withSteps(latest), nil
}

func (r *InMemoryJobRepository) withSteps(je *model.JobExecution) *model.JobExecution {
	cloned := *je
	cloned.StepExecutions = make([]*model.StepExecution, 0)
	for _, se := range r.stepExecutions {
		if se.JobExecutionID == cloned.ID {
			cloned.StepExecutions = append(cloned.StepExecutions, se)
		}
	}
	sort.Slice(cloned.StepExecutions, func(i, j int) bool {
		return cloned.StepExecutions[i].StartTime.Before(cloned.StepExecutions[j].StartTime)
	})
	return &cloned
}

// SaveStepExecution stores a new StepExecution.
func (r *InMemoryJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stepExecutions[stepExecution.ID]; exists {
		return fmt.Errorf("StepExecution with ID %s already exists", stepExecution.ID)
	}
	r.stepExecutions[stepExecution.ID] = stepExecution
	return nil
}

// UpdateStepExecution replaces a stored StepExecution.
func (r *InMemoryJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stepExecutions[stepExecution.ID]; !exists {
		return fmt.Errorf("StepExecution with ID %s not found for update: %w", stepExecution.ID, repository.ErrStepExecutionNotFound)
	}
	r.stepExecutions[stepExecution.ID] = stepExecution
	return nil
}

// FindStepExecutionByID returns the stored StepExecution.
func (r *InMemoryJobRepository) FindStepExecutionByID(ctx context.Context, id string) (*model.StepExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	se, ok := r.stepExecutions[id]
	if !ok {
		return nil, repository.ErrStepExecutionNotFound
	}
	return se, nil
}

// Close releases resources used by the repository. It always returns nil.
func (r *InMemoryJobRepository) Close() error {
	return nil
}

// Module provides the in-memory JobRepository.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewInMemoryJobRepository,
		fx.As(new(repository.JobRepository)),
	)),
)
