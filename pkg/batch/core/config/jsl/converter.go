package jsl

import (
	"sort"

	port "github.com/tigerroll/weatheretl/pkg/batch/core/application/port"
	config "github.com/tigerroll/weatheretl/pkg/batch/core/config"
	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/weatheretl/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/weatheretl/pkg/batch/core/metrics"
	taskletstep "github.com/tigerroll/weatheretl/pkg/batch/engine/step/tasklet"
	exception "github.com/tigerroll/weatheretl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

// ConvertOptions carries everything needed to turn a JSL flow into a FlowDefinition.
type ConvertOptions struct {
	Config               *config.Config
	JobRepository        repository.JobRepository
	TaskletBuilders      map[string]TaskletBuilder
	StepListenerBuilders map[string]StepExecutionListenerBuilder
	MetricRecorder       metrics.MetricRecorder
	Tracer               metrics.Tracer
}

// ConvertJSLToCoreFlow builds a TaskletStep for every element and registers its transitions.
func ConvertJSLToCoreFlow(jslFlow Flow, opts ConvertOptions) (*model.FlowDefinition, error) {
	module := "jsl_converter"
	flowDef := model.NewFlowDefinition(jslFlow.StartElement)

	if _, ok := jslFlow.Elements[jslFlow.StartElement]; !ok {
		return nil, exception.NewBatchErrorf(module, "Flow 'start-element' '%s' not found in 'elements'", jslFlow.StartElement)
	}

	ids := make([]string, 0, len(jslFlow.Elements))
	for id := range jslFlow.Elements {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		jslStep := jslFlow.Elements[id]

		builder, found := opts.TaskletBuilders[jslStep.Tasklet.Ref]
		if !found {
			return nil, exception.NewBatchErrorf(module, "Tasklet builder '%s' is not registered (step '%s')", jslStep.Tasklet.Ref, id)
		}
		tasklet, err := builder(opts.Config, jslStep.Tasklet.Properties)
		if err != nil {
			return nil, exception.NewBatchError(module, "Failed to build tasklet '"+jslStep.Tasklet.Ref+"'", err, false, false)
		}

		var listeners []port.StepExecutionListener
		for _, ref := range jslStep.Listeners {
			lb, found := opts.StepListenerBuilders[ref.Ref]
			if !found {
				return nil, exception.NewBatchErrorf(module, "StepExecutionListener builder '%s' is not registered", ref.Ref)
			}
			l, err := lb(opts.Config, ref.Properties)
			if err != nil {
				return nil, exception.NewBatchError(module, "Failed to build StepExecutionListener '"+ref.Ref+"'", err, false, false)
			}
			listeners = append(listeners, l)
		}

		step := taskletstep.NewTaskletStep(id, tasklet, opts.JobRepository, listeners,
			jslStep.ExecutionContextPromotion, opts.MetricRecorder, opts.Tracer)
		if err := flowDef.AddElement(id, step); err != nil {
			return nil, exception.NewBatchError(module, "Failed to add step to flow", err, false, false)
		}
		for _, t := range jslStep.Transitions {
			flowDef.AddTransitionRule(id, t)
		}
		logger.Debugf("Converted JSL step '%s' (tasklet '%s', %d transitions).", id, jslStep.Tasklet.Ref, len(jslStep.Transitions))
	}
	return flowDef, nil
}

// Subflow returns a flow containing only stepIDs, run in the given order.
// Transitions into dropped steps are redirected to the next kept step, or end the job after the last one.
func (f Flow) Subflow(stepIDs ...string) (Flow, error) {
	if len(stepIDs) == 0 {
		return Flow{}, exception.NewBatchErrorf("jsl_converter", "Subflow requires at least one step")
	}
	kept := make(map[string]bool, len(stepIDs))
	for _, id := range stepIDs {
		if _, ok := f.Elements[id]; !ok {
			return Flow{}, exception.NewBatchErrorf("jsl_converter", "Step '%s' not found in flow", id)
		}
		kept[id] = true
	}

	sub := Flow{StartElement: stepIDs[0], Elements: make(map[string]Step, len(stepIDs))}
	for i, id := range stepIDs {
		step := f.Elements[id]
		transitions := make([]model.Transition, 0, len(step.Transitions))
		for _, t := range step.Transitions {
			if t.To != "" && !kept[t.To] {
				if i+1 < len(stepIDs) {
					t.To = stepIDs[i+1]
				} else {
					t.To = ""
					t.End = true
				}
			}
			transitions = append(transitions, t)
		}
		step.Transitions = transitions
		sub.Elements[id] = step
	}
	return sub, nil
}
