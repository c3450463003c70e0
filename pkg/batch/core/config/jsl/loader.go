package jsl

import (
	"fmt"

	"gopkg.in/yaml.v3"

	exception "github.com/tigerroll/weatheretl/pkg/batch/support/util/exception"
)

// ParseJSL parses and validates a single JSL document.
func ParseJSL(data []byte) (Job, error) {
	var jobDef Job
	if err := yaml.Unmarshal(data, &jobDef); err != nil {
		return Job{}, exception.NewBatchError("jsl_loader", "Failed to parse JSL file", err, false, false)
	}
	if err := validate(jobDef); err != nil {
		return Job{}, err
	}
	return jobDef, nil
}

func validate(jobDef Job) error {
	if jobDef.ID == "" {
		return exception.NewBatchError("jsl_loader", "'id' is not defined in JSL file", nil, false, false)
	}
	if jobDef.Name == "" {
		return exception.NewBatchError("jsl_loader", fmt.Sprintf("JSL job '%s' does not have 'name' defined", jobDef.ID), nil, false, false)
	}
	if jobDef.Flow.StartElement == "" {
		return exception.NewBatchError("jsl_loader", fmt.Sprintf("JSL job '%s' flow does not have 'start-element' defined", jobDef.ID), nil, false, false)
	}
	if len(jobDef.Flow.Elements) == 0 {
		return exception.NewBatchError("jsl_loader", fmt.Sprintf("JSL job '%s' flow does not have 'elements' defined", jobDef.ID), nil, false, false)
	}
	if _, ok := jobDef.Flow.Elements[jobDef.Flow.StartElement]; !ok {
		return exception.NewBatchErrorf("jsl_loader", "JSL job '%s': start-element '%s' not found in elements", jobDef.ID, jobDef.Flow.StartElement)
	}
	for id, step := range jobDef.Flow.Elements {
		if step.ID != id {
			return exception.NewBatchErrorf("jsl_loader", "Step ID '%s' does not match map key '%s'", step.ID, id)
		}
		if step.Tasklet.Ref == "" {
			return exception.NewBatchErrorf("jsl_loader", "Step '%s' does not reference a tasklet", id)
		}
		for _, t := range step.Transitions {
			if t.To == "" && !t.End && !t.Fail && !t.Stop {
				return exception.NewBatchErrorf("jsl_loader", "Step '%s': transition on '%s' has no target", id, t.On)
			}
			if t.To != "" {
				if _, ok := jobDef.Flow.Elements[t.To]; !ok {
					return exception.NewBatchErrorf("jsl_loader", "Step '%s': transition target '%s' not found", id, t.To)
				}
			}
		}
	}
	return nil
}
