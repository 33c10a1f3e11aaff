package models

import (
	"encoding/json"
	"strings"

	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	dErrors "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain-errors"
)

// Condition maps an employee attribute name to its expected value.
// A nil value means "not constrained".
type Condition map[string]any

// Rule grants provider-specific access to employees matching Condition.
// Higher Priority rules are merged first.
type Rule struct {
	ID            id.RuleID        `json:"id"`
	IntegrationID id.IntegrationID `json:"integrationId"`
	Name          string           `json:"name"`
	Condition     Condition        `json:"condition"`
	Data          json.RawMessage  `json:"provisionData"`
	Priority      int              `json:"priority"`
	Active        bool             `json:"active"`
}

func NewRule(ruleID id.RuleID, integrationID id.IntegrationID, name string, condition Condition, data json.RawMessage, priority int) (*Rule, error) {
	if integrationID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "rule must belong to an integration")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "rule name cannot be empty")
	}
	if len(data) > 0 && !json.Valid(data) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "rule provision data must be valid JSON")
	}
	if condition == nil {
		condition = Condition{}
	}
	return &Rule{
		ID:            ruleID,
		IntegrationID: integrationID,
		Name:          name,
		Condition:     condition,
		Data:          data,
		Priority:      priority,
		Active:        true,
	}, nil
}
