// Package connector defines the contract every provider integration
// implements and the HTTP plumbing the variants share.
package connector

import (
	"context"

	account "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	employee "github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/models"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	provisioning "github.com/CuracelDev/curacel-peoplev2-sub001/internal/provisioning/models"
)

// Connector grants and revokes an employee's access in one provider.
// Expected failures are reported in the result's Err, never as panics.
type Connector interface {
	Provision(ctx context.Context, req ProvisionRequest) ProvisionResult
	Deprovision(ctx context.Context, req DeprovisionRequest) DeprovisionResult
	TestConnection(ctx context.Context) TestResult
}

type ProvisionRequest struct {
	Employee    *employee.Employee
	Integration *integration.Integration
	// Rules are the integration's active rules; connectors resolve them.
	Rules    []*provisioning.Rule
	Existing *account.AppAccount
}

type DeprovisionRequest struct {
	Employee    *employee.Employee
	Integration *integration.Integration
	Account     *account.AppAccount
	Options     account.DeprovisionOptions
}

// NoticeKind tells the notifier what to send.
type NoticeKind string

const (
	NoticeInitialPassword NoticeKind = "initial_password"
	NoticeInvitation      NoticeKind = "invitation"
)

// Notice is a one-off message for the employee. Secret is delivered once and
// never persisted.
type Notice struct {
	Kind   NoticeKind
	Email  string
	Secret string
	Detail string
}

type ProvisionResult struct {
	Success bool
	// Pending means the identity exists only as an invitation.
	Pending          bool
	ExternalUserID   string
	ExternalEmail    string
	ExternalUsername string
	Resources        account.ProvisionedResources
	// Note is a non-fatal remark, e.g. an unsupported operation.
	Note   string
	Notice *Notice
	Err    *Error
}

// Outcome converts the result into what the account records. Resources is
// nil when the attempt granted nothing.
func (r ProvisionResult) Outcome() account.ProvisionOutcome {
	var resources *account.ProvisionedResources
	if !r.Resources.IsEmpty() {
		applied := r.Resources
		resources = &applied
	}
	msg := r.Note
	if r.Err != nil {
		msg = r.Err.Error()
	}
	return account.ProvisionOutcome{
		Success:          r.Success && r.Err == nil,
		Pending:          r.Pending,
		ExternalUserID:   r.ExternalUserID,
		ExternalEmail:    r.ExternalEmail,
		ExternalUsername: r.ExternalUsername,
		Resources:        resources,
		Message:          msg,
	}
}

// ProvisionFailed builds a failed result that keeps what was already applied.
func ProvisionFailed(err *Error, resources account.ProvisionedResources) ProvisionResult {
	return ProvisionResult{Resources: resources, Err: err}
}

type DeprovisionResult struct {
	Success bool
	Note    string
	Err     *Error
}

// Message is the text stored on the account.
func (r DeprovisionResult) Message() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.Note
}

func DeprovisionFailed(err *Error) DeprovisionResult {
	return DeprovisionResult{Err: err}
}

type TestResult struct {
	Success bool
	Message string
	Err     *Error
}

func TestOK(message string) TestResult {
	return TestResult{Success: true, Message: message}
}

func TestFailed(err *Error) TestResult {
	return TestResult{Err: err, Message: err.Error()}
}
