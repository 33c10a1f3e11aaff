// Package seed loads integrations, connections, provisioning rules, offboarding
// templates and employees from a YAML file. It is meant for development and
// demo environments; production data is managed through the stores directly.
package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	employee "github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/models"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	offboarding "github.com/CuracelDev/curacel-peoplev2-sub001/internal/offboarding/models"
	provisioning "github.com/CuracelDev/curacel-peoplev2-sub001/internal/provisioning/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/platform/sealed"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
)

// File is the YAML document layout.
type File struct {
	Integrations []Integration `yaml:"integrations"`
	Templates    []Template    `yaml:"templates"`
	Employees    []Employee    `yaml:"employees"`
}

// Integration declares one integration with its connection config and rules.
// Key is the name other entries use to reference it.
type Integration struct {
	Key      string         `yaml:"key"`
	ID       string         `yaml:"id,omitempty"`
	Provider string         `yaml:"provider"`
	Name     string         `yaml:"name,omitempty"`
	Disabled bool           `yaml:"disabled,omitempty"`
	Config   map[string]any `yaml:"config,omitempty"`
	Rules    []Rule         `yaml:"rules,omitempty"`
}

// Rule declares a provisioning rule for its parent integration.
type Rule struct {
	Name      string         `yaml:"name"`
	Condition map[string]any `yaml:"condition,omitempty"`
	Data      map[string]any `yaml:"data,omitempty"`
	Priority  int            `yaml:"priority,omitempty"`
}

// Template declares an offboarding task template.
type Template struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Type        string `yaml:"type"`
	Kind        string `yaml:"kind,omitempty"`
	Integration string `yaml:"integration,omitempty"`
	Provider    string `yaml:"provider,omitempty"`
	SortOrder   int    `yaml:"sort_order"`
}

// Employee declares an employee record.
type Employee struct {
	ID             string         `yaml:"id,omitempty"`
	FullName       string         `yaml:"full_name"`
	WorkEmail      string         `yaml:"work_email,omitempty"`
	PersonalEmail  string         `yaml:"personal_email,omitempty"`
	Department     string         `yaml:"department,omitempty"`
	Location       string         `yaml:"location,omitempty"`
	EmploymentType string         `yaml:"employment_type,omitempty"`
	JobTitle       string         `yaml:"job_title,omitempty"`
	Metadata       map[string]any `yaml:"metadata,omitempty"`
}

// IntegrationWriter persists integrations and their connections.
type IntegrationWriter interface {
	Save(ctx context.Context, in *integration.Integration) error
	SaveConnection(ctx context.Context, conn *integration.Connection) error
}

// RuleWriter persists provisioning rules.
type RuleWriter interface {
	Save(ctx context.Context, r *provisioning.Rule) error
}

// TemplateWriter persists offboarding templates.
type TemplateWriter interface {
	Save(ctx context.Context, t *offboarding.Template) error
}

// EmployeeWriter persists employees.
type EmployeeWriter interface {
	Save(ctx context.Context, e *employee.Employee) error
}

// Targets are the stores a seed file writes into.
type Targets struct {
	Integrations IntegrationWriter
	Rules        RuleWriter
	Templates    TemplateWriter
	Employees    EmployeeWriter
}

// Summary counts what was loaded.
type Summary struct {
	Integrations int
	Rules        int
	Templates    int
	Employees    int
}

// Parse decodes a seed document. Unknown fields are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &f, nil
}

// LoadFile reads path and applies it to t.
func LoadFile(ctx context.Context, path string, t Targets, opener *sealed.Opener, logger *slog.Logger) (Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, fmt.Errorf("read seed file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return Summary{}, err
	}
	sum, err := Apply(ctx, f, t, opener, time.Now())
	if err != nil {
		return sum, err
	}
	logger.InfoContext(ctx, "seed data loaded",
		"path", path,
		"integrations", sum.Integrations,
		"rules", sum.Rules,
		"templates", sum.Templates,
		"employees", sum.Employees,
	)
	return sum, nil
}

// Apply writes f into the targets. Connection configs are sealed to the
// opener's recipient when it has one and stored as plaintext JSON otherwise.
func Apply(ctx context.Context, f *File, t Targets, opener *sealed.Opener, now time.Time) (Summary, error) {
	var sum Summary
	keys := make(map[string]*integration.Integration, len(f.Integrations))

	for _, spec := range f.Integrations {
		in, err := applyIntegration(ctx, spec, t.Integrations, opener, now)
		if err != nil {
			return sum, err
		}
		if spec.Key != "" {
			if _, dup := keys[spec.Key]; dup {
				return sum, fmt.Errorf("integration key %q is declared twice", spec.Key)
			}
			keys[spec.Key] = in
		}
		sum.Integrations++

		for _, rs := range spec.Rules {
			data, err := json.Marshal(rs.Data)
			if err != nil {
				return sum, fmt.Errorf("rule %q: encode data: %w", rs.Name, err)
			}
			if rs.Data == nil {
				data = nil
			}
			rule, err := provisioning.NewRule(id.RuleID(uuid.New()), in.ID, rs.Name, provisioning.Condition(rs.Condition), data, rs.Priority)
			if err != nil {
				return sum, fmt.Errorf("rule %q: %w", rs.Name, err)
			}
			if err := t.Rules.Save(ctx, rule); err != nil {
				return sum, fmt.Errorf("save rule %q: %w", rs.Name, err)
			}
			sum.Rules++
		}
	}

	for _, ts := range f.Templates {
		tmpl, err := offboarding.NewTemplate(id.TemplateID(uuid.New()), ts.Name,
			offboarding.TaskType(normalize(ts.Type)), offboarding.AutomationKind(normalize(ts.Kind)), ts.SortOrder)
		if err != nil {
			return sum, fmt.Errorf("template %q: %w", ts.Name, err)
		}
		tmpl.Description = ts.Description
		if ts.Integration != "" {
			in, ok := keys[ts.Integration]
			if !ok {
				return sum, fmt.Errorf("template %q references unknown integration %q", ts.Name, ts.Integration)
			}
			integrationID := in.ID
			tmpl.IntegrationID = &integrationID
		}
		if ts.Provider != "" {
			p, err := integration.ParseProvider(ts.Provider)
			if err != nil {
				return sum, fmt.Errorf("template %q: %w", ts.Name, err)
			}
			tmpl.Provider = string(p)
		}
		if err := t.Templates.Save(ctx, tmpl); err != nil {
			return sum, fmt.Errorf("save template %q: %w", ts.Name, err)
		}
		sum.Templates++
	}

	for _, es := range f.Employees {
		employeeID := id.EmployeeID(uuid.New())
		if es.ID != "" {
			parsed, err := id.ParseEmployeeID(es.ID)
			if err != nil {
				return sum, fmt.Errorf("employee %q: %w", es.FullName, err)
			}
			employeeID = parsed
		}
		emp, err := employee.NewEmployee(employeeID, es.FullName, es.WorkEmail, now)
		if err != nil {
			return sum, fmt.Errorf("employee %q: %w", es.FullName, err)
		}
		emp.PersonalEmail = es.PersonalEmail
		emp.Department = es.Department
		emp.Location = es.Location
		emp.EmploymentType = es.EmploymentType
		emp.JobTitle = es.JobTitle
		if es.Metadata != nil {
			emp.Metadata = es.Metadata
		}
		if err := t.Employees.Save(ctx, emp); err != nil {
			return sum, fmt.Errorf("save employee %q: %w", es.FullName, err)
		}
		sum.Employees++
	}
	return sum, nil
}

func applyIntegration(ctx context.Context, spec Integration, w IntegrationWriter, opener *sealed.Opener, now time.Time) (*integration.Integration, error) {
	provider, err := integration.ParseProvider(spec.Provider)
	if err != nil {
		return nil, fmt.Errorf("integration %q: %w", spec.Key, err)
	}
	integrationID := id.IntegrationID(uuid.New())
	if spec.ID != "" {
		if integrationID, err = id.ParseIntegrationID(spec.ID); err != nil {
			return nil, fmt.Errorf("integration %q: %w", spec.Key, err)
		}
	}
	in, err := integration.NewIntegration(integrationID, provider, spec.Name)
	if err != nil {
		return nil, fmt.Errorf("integration %q: %w", spec.Key, err)
	}
	in.Enabled = !spec.Disabled
	if err := w.Save(ctx, in); err != nil {
		return nil, fmt.Errorf("save integration %q: %w", spec.Key, err)
	}

	if len(spec.Config) == 0 {
		return in, nil
	}
	blob, err := json.Marshal(spec.Config)
	if err != nil {
		return nil, fmt.Errorf("integration %q: encode config: %w", spec.Key, err)
	}
	if opener != nil && opener.Recipient() != "" {
		if blob, err = sealed.Seal(blob, opener.Recipient()); err != nil {
			return nil, fmt.Errorf("integration %q: seal config: %w", spec.Key, err)
		}
	}
	conn := &integration.Connection{
		ID:              id.ConnectionID(uuid.New()),
		IntegrationID:   in.ID,
		Active:          true,
		EncryptedConfig: blob,
		CreatedAt:       now,
	}
	if err := w.SaveConnection(ctx, conn); err != nil {
		return nil, fmt.Errorf("save connection for %q: %w", spec.Key, err)
	}
	return in, nil
}

func normalize(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
}
