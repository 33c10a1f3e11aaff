package connector

import (
	"context"
	"fmt"

	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
)

// Step is one named grant, e.g. "group:developers".
type Step struct {
	Name  string
	Apply func(ctx context.Context) error
}

// GrantPlan applies steps in order and stops at the first failure. Applied
// steps are not rolled back.
type GrantPlan struct {
	provider integration.Provider
	steps    []Step
}

func NewGrantPlan(provider integration.Provider) *GrantPlan {
	return &GrantPlan{provider: provider}
}

// Add appends a step.
func (p *GrantPlan) Add(name string, apply func(ctx context.Context) error) *GrantPlan {
	p.steps = append(p.steps, Step{Name: name, Apply: apply})
	return p
}

func (p *GrantPlan) Len() int { return len(p.steps) }

// PlanResult lists what ran. Err is nil when every step succeeded.
type PlanResult struct {
	Applied []string
	Failed  string
	Err     *Error
}

// Partial reports whether the plan stopped after applying something.
func (r PlanResult) Partial() bool {
	return r.Err != nil && len(r.Applied) > 0
}

// Execute runs the steps. A failure on the first step keeps its own
// category; a later failure becomes partial_application.
func (p *GrantPlan) Execute(ctx context.Context) PlanResult {
	var res PlanResult
	for _, step := range p.steps {
		if err := step.Apply(ctx); err != nil {
			res.Failed = step.Name
			cause := AsError(p.provider, err)
			if len(res.Applied) == 0 {
				res.Err = cause
				return res
			}
			res.Err = WrapError(p.provider, CategoryPartial, cause,
				fmt.Sprintf("applied %d of %d grants; %s failed", len(res.Applied), len(p.steps), step.Name))
			return res
		}
		res.Applied = append(res.Applied, step.Name)
	}
	return res
}
