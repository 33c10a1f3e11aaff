package models

import (
	"strings"
	"time"

	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	dErrors "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain-errors"
)

// Status is the employment lifecycle state of an employee.
type Status string

const (
	StatusCandidate   Status = "CANDIDATE"
	StatusActive      Status = "ACTIVE"
	StatusOffboarding Status = "OFFBOARDING"
	StatusExited      Status = "EXITED"
)

// Employee is the person whose access is provisioned and revoked.
//
// Invariants:
//   - FullName is non-empty
//   - ExitDate is set while OFFBOARDING or EXITED, nil otherwise
//
// Attributes (department, location, ...) are maintained by HR flows outside
// this service; rule conditions are evaluated against them.
type Employee struct {
	ID             id.EmployeeID  `json:"id"`
	FullName       string         `json:"fullName"`
	WorkEmail      string         `json:"workEmail,omitempty"`
	PersonalEmail  string         `json:"personalEmail,omitempty"`
	Department     string         `json:"department,omitempty"`
	Location       string         `json:"location,omitempty"`
	EmploymentType string         `json:"employmentType,omitempty"`
	JobTitle       string         `json:"jobTitle,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Status         Status         `json:"status"`
	ExitDate       *time.Time     `json:"exitDate,omitempty"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

func NewEmployee(employeeID id.EmployeeID, fullName, workEmail string, now time.Time) (*Employee, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "employee name cannot be empty")
	}
	return &Employee{
		ID:        employeeID,
		FullName:  fullName,
		WorkEmail: strings.TrimSpace(workEmail),
		Status:    StatusActive,
		Metadata:  map[string]any{},
		UpdatedAt: now,
	}, nil
}

// Attribute returns the first-class attribute for key, falling back to
// Metadata. The bool is false when neither carries the key.
func (e *Employee) Attribute(key string) (any, bool) {
	switch key {
	case "department":
		return e.Department, true
	case "location":
		return e.Location, true
	case "employmentType":
		return e.EmploymentType, true
	case "jobTitle":
		return e.JobTitle, true
	case "workEmail":
		return e.WorkEmail, true
	case "personalEmail":
		return e.PersonalEmail, true
	case "fullName":
		return e.FullName, true
	}
	v, ok := e.Metadata[key]
	return v, ok
}

// PreferredEmail is the work email when known, else the personal email.
func (e *Employee) PreferredEmail() string {
	if e.WorkEmail != "" {
		return e.WorkEmail
	}
	return e.PersonalEmail
}

func (e *Employee) IsExited() bool {
	return e.Status == StatusExited
}

// StartOffboarding moves the employee to OFFBOARDING with the given exit date.
func (e *Employee) StartOffboarding(exitDate, now time.Time) error {
	if e.Status == StatusExited {
		return dErrors.New(dErrors.CodeInvalidState, "employee has already exited")
	}
	e.Status = StatusOffboarding
	e.ExitDate = &exitDate
	e.UpdatedAt = now
	return nil
}

// CancelOffboarding reverts to ACTIVE and clears the exit date.
func (e *Employee) CancelOffboarding(now time.Time) {
	e.Status = StatusActive
	e.ExitDate = nil
	e.UpdatedAt = now
}

// MarkExited records that every offboarding task has been resolved.
func (e *Employee) MarkExited(now time.Time) {
	e.Status = StatusExited
	if e.ExitDate == nil {
		e.ExitDate = &now
	}
	e.UpdatedAt = now
}
