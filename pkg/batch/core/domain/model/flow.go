package model

import "fmt"

// Transition defines a transition rule from a flow element to the next element.
type Transition struct {
	On   string `yaml:"on"`
	To   string `yaml:"to,omitempty"`
	End  bool   `yaml:"end,omitempty"`
	Fail bool   `yaml:"fail,omitempty"`
	Stop bool   `yaml:"stop,omitempty"`
}

// TransitionRule binds a Transition to its source element.
type TransitionRule struct {
	From       string
	Transition Transition
}

// FlowDefinition defines the entire execution flow of a job.
type FlowDefinition struct {
	StartElement string
	// Elements holds flow elements by ID. interface{} avoids an import cycle with port.FlowElement.
	Elements        map[string]interface{}
	TransitionRules []TransitionRule
}

// NewFlowDefinition creates a new instance of FlowDefinition.
func NewFlowDefinition(startElement string) *FlowDefinition {
	return &FlowDefinition{
		StartElement:    startElement,
		Elements:        make(map[string]interface{}),
		TransitionRules: make([]TransitionRule, 0),
	}
}

// AddElement adds a new element to the flow.
func (fd *FlowDefinition) AddElement(id string, element interface{}) error {
	if _, exists := fd.Elements[id]; exists {
		return fmt.Errorf("flow element ID '%s' already exists", id)
	}
	fd.Elements[id] = element
	return nil
}

// AddTransitionRule adds a transition rule.
func (fd *FlowDefinition) AddTransitionRule(from string, t Transition) {
	fd.TransitionRules = append(fd.TransitionRules, TransitionRule{From: from, Transition: t})
}

// GetTransitionRule returns the first rule from `from` matching exitStatus, or a "*" wildcard rule.
// Exact matches take precedence over the wildcard regardless of declaration order.
func (fd *FlowDefinition) GetTransitionRule(from string, exitStatus ExitStatus) (TransitionRule, bool) {
	var wildcard *TransitionRule
	for i, rule := range fd.TransitionRules {
		if rule.From != from {
			continue
		}
		if rule.Transition.On == string(exitStatus) {
			return rule, true
		}
		if rule.Transition.On == "*" && wildcard == nil {
			wildcard = &fd.TransitionRules[i]
		}
	}
	if wildcard != nil {
		return *wildcard, true
	}
	return TransitionRule{}, false
}

// ExecutionContextPromotion defines which step context keys are copied to the job context.
type ExecutionContextPromotion struct {
	Keys []string `yaml:"keys,omitempty"`
	// JobLevelKeys maps a step key to a different job-level key.
	JobLevelKeys map[string]string `yaml:"job-level-keys,omitempty"`
}
