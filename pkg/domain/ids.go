// Package domain holds typed identifiers shared across modules.
//
// Each entity gets its own UUID-backed type so an account ID can never be
// passed where a workflow ID is expected.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain-errors"
)

type (
	EmployeeID    uuid.UUID
	IntegrationID uuid.UUID
	ConnectionID  uuid.UUID
	RuleID        uuid.UUID
	AccountID     uuid.UUID
	WorkflowID    uuid.UUID
	TaskID        uuid.UUID
	TemplateID    uuid.UUID
)

func parseID(kind, s string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be nil")
	}
	return u, nil
}

// unmarshalID accepts the nil UUID so zero-valued optional references survive a round trip.
func unmarshalID(kind string, text []byte) (uuid.UUID, error) {
	if len(text) == 0 {
		return uuid.Nil, nil
	}
	u, err := uuid.ParseBytes(text)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	return u, nil
}

// ParseEmployeeID parses a non-nil employee id.
func ParseEmployeeID(s string) (EmployeeID, error) {
	u, err := parseID("employee", s)
	return EmployeeID(u), err
}

func (id EmployeeID) String() string { return uuid.UUID(id).String() }
func (id EmployeeID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id EmployeeID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *EmployeeID) UnmarshalText(text []byte) error {
	u, err := unmarshalID("employee", text)
	if err != nil {
		return err
	}
	*id = EmployeeID(u)
	return nil
}

// ParseIntegrationID parses a non-nil integration id.
func ParseIntegrationID(s string) (IntegrationID, error) {
	u, err := parseID("integration", s)
	return IntegrationID(u), err
}

func (id IntegrationID) String() string { return uuid.UUID(id).String() }
func (id IntegrationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id IntegrationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *IntegrationID) UnmarshalText(text []byte) error {
	u, err := unmarshalID("integration", text)
	if err != nil {
		return err
	}
	*id = IntegrationID(u)
	return nil
}

// ParseConnectionID parses a non-nil connection id.
func ParseConnectionID(s string) (ConnectionID, error) {
	u, err := parseID("connection", s)
	return ConnectionID(u), err
}

func (id ConnectionID) String() string { return uuid.UUID(id).String() }
func (id ConnectionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id ConnectionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *ConnectionID) UnmarshalText(text []byte) error {
	u, err := unmarshalID("connection", text)
	if err != nil {
		return err
	}
	*id = ConnectionID(u)
	return nil
}

// ParseRuleID parses a non-nil rule id.
func ParseRuleID(s string) (RuleID, error) {
	u, err := parseID("rule", s)
	return RuleID(u), err
}

func (id RuleID) String() string { return uuid.UUID(id).String() }
func (id RuleID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id RuleID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *RuleID) UnmarshalText(text []byte) error {
	u, err := unmarshalID("rule", text)
	if err != nil {
		return err
	}
	*id = RuleID(u)
	return nil
}

// ParseAccountID parses a non-nil account id.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseID("account", s)
	return AccountID(u), err
}

func (id AccountID) String() string { return uuid.UUID(id).String() }
func (id AccountID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id AccountID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *AccountID) UnmarshalText(text []byte) error {
	u, err := unmarshalID("account", text)
	if err != nil {
		return err
	}
	*id = AccountID(u)
	return nil
}

// ParseWorkflowID parses a non-nil workflow id.
func ParseWorkflowID(s string) (WorkflowID, error) {
	u, err := parseID("workflow", s)
	return WorkflowID(u), err
}

func (id WorkflowID) String() string { return uuid.UUID(id).String() }
func (id WorkflowID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id WorkflowID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *WorkflowID) UnmarshalText(text []byte) error {
	u, err := unmarshalID("workflow", text)
	if err != nil {
		return err
	}
	*id = WorkflowID(u)
	return nil
}

// ParseTaskID parses a non-nil task id.
func ParseTaskID(s string) (TaskID, error) {
	u, err := parseID("task", s)
	return TaskID(u), err
}

func (id TaskID) String() string { return uuid.UUID(id).String() }
func (id TaskID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id TaskID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *TaskID) UnmarshalText(text []byte) error {
	u, err := unmarshalID("task", text)
	if err != nil {
		return err
	}
	*id = TaskID(u)
	return nil
}

// ParseTemplateID parses a non-nil template id.
func ParseTemplateID(s string) (TemplateID, error) {
	u, err := parseID("template", s)
	return TemplateID(u), err
}

func (id TemplateID) String() string { return uuid.UUID(id).String() }
func (id TemplateID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id TemplateID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *TemplateID) UnmarshalText(text []byte) error {
	u, err := unmarshalID("template", text)
	if err != nil {
		return err
	}
	*id = TemplateID(u)
	return nil
}
