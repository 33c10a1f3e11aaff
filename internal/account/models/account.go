package models

import (
	"time"

	provisioning "github.com/CuracelDev/curacel-peoplev2-sub001/internal/provisioning/models"
	id "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/domain"
	pstrings "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/strings"
)

// Status is the lifecycle state of an employee's account in one integration.
//
//	PROVISIONING -> ACTIVE | PENDING | FAILED
//	ACTIVE | PENDING | FAILED -> PROVISIONING (re-provision)
//	any non-terminal -> DEPROVISIONED | DISABLED | FAILED
//
// DEPROVISIONED and DISABLED are terminal for deprovisioning purposes; a later
// provision call may still reopen the account.
type Status string

const (
	StatusPending       Status = "PENDING"
	StatusProvisioning  Status = "PROVISIONING"
	StatusActive        Status = "ACTIVE"
	StatusFailed        Status = "FAILED"
	StatusDeprovisioned Status = "DEPROVISIONED"
	StatusDisabled      Status = "DISABLED"
)

// IsRevoked reports whether access is already gone.
func (s Status) IsRevoked() bool {
	return s == StatusDeprovisioned || s == StatusDisabled
}

// HoldsAccess reports whether the account may still grant access externally.
func (s Status) HoldsAccess() bool {
	return s == StatusActive || s == StatusPending || s == StatusProvisioning
}

// ProvisionedResources records what was actually granted in the target system.
type ProvisionedResources struct {
	OrgUnitPath  string                         `json:"orgUnitPath,omitempty"`
	Groups       []string                       `json:"groups,omitempty"`
	Channels     []string                       `json:"channels,omitempty"`
	UserGroups   []string                       `json:"userGroups,omitempty"`
	Repositories []provisioning.RepositoryGrant `json:"repositories,omitempty"`
	ProjectRoles []provisioning.ProjectRole     `json:"projectRoles,omitempty"`
	Vaults       []string                       `json:"vaults,omitempty"`
	// Applied lists completed grant steps in execution order.
	Applied []string `json:"applied,omitempty"`
	// Partial is set when a grant sequence stopped before finishing.
	Partial bool `json:"partial,omitempty"`
}

// IsEmpty reports whether nothing was granted.
func (r ProvisionedResources) IsEmpty() bool {
	return r.OrgUnitPath == "" && len(r.Groups) == 0 && len(r.Channels) == 0 &&
		len(r.UserGroups) == 0 && len(r.Repositories) == 0 && len(r.ProjectRoles) == 0 &&
		len(r.Vaults) == 0 && len(r.Applied) == 0
}

// Merge adds next to r. Sets are unioned in order; a repository or project
// role present in both takes the value from next.
func (r ProvisionedResources) Merge(next ProvisionedResources) ProvisionedResources {
	out := ProvisionedResources{
		OrgUnitPath: r.OrgUnitPath,
		Groups:      pstrings.Union(r.Groups, next.Groups),
		Channels:    pstrings.Union(r.Channels, next.Channels),
		UserGroups:  pstrings.Union(r.UserGroups, next.UserGroups),
		Vaults:      pstrings.Union(r.Vaults, next.Vaults),
		Applied:     pstrings.Union(r.Applied, next.Applied),
		Partial:     r.Partial || next.Partial,
	}
	if next.OrgUnitPath != "" {
		out.OrgUnitPath = next.OrgUnitPath
	}

	repos := append([]provisioning.RepositoryGrant(nil), r.Repositories...)
	for _, g := range next.Repositories {
		replaced := false
		for i := range repos {
			if repos[i].Slug == g.Slug {
				repos[i], replaced = g, true
				break
			}
		}
		if !replaced {
			repos = append(repos, g)
		}
	}
	out.Repositories = repos

	seen := make(map[string]bool, len(r.ProjectRoles))
	roles := append([]provisioning.ProjectRole(nil), r.ProjectRoles...)
	for _, pr := range roles {
		seen[pr.Key()] = true
	}
	for _, pr := range next.ProjectRoles {
		if !seen[pr.Key()] {
			seen[pr.Key()] = true
			roles = append(roles, pr)
		}
	}
	out.ProjectRoles = roles
	return out
}

// AppAccount binds one employee to one integration.
// At most one exists per (EmployeeID, IntegrationID).
type AppAccount struct {
	ID                   id.AccountID          `json:"id"`
	EmployeeID           id.EmployeeID         `json:"employeeId"`
	IntegrationID        id.IntegrationID      `json:"integrationId"`
	Status               Status                `json:"status"`
	ExternalUserID       string                `json:"externalUserId,omitempty"`
	ExternalEmail        string                `json:"externalEmail,omitempty"`
	ExternalUsername     string                `json:"externalUsername,omitempty"`
	ProvisionedResources *ProvisionedResources `json:"provisionedResources,omitempty"`
	StatusMessage        string                `json:"statusMessage,omitempty"`
	LastSyncAt           *time.Time            `json:"lastSyncAt,omitempty"`
	DeprovisionedAt      *time.Time            `json:"deprovisionedAt,omitempty"`
	CreatedAt            time.Time             `json:"createdAt"`
	UpdatedAt            time.Time             `json:"updatedAt"`
}

// NewProvisioningAccount builds the row written before a provision attempt.
func NewProvisioningAccount(accountID id.AccountID, employeeID id.EmployeeID, integrationID id.IntegrationID, now time.Time) *AppAccount {
	return &AppAccount{
		ID:            accountID,
		EmployeeID:    employeeID,
		IntegrationID: integrationID,
		Status:        StatusProvisioning,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ProvisionOutcome is what a connector reported for one provision attempt.
type ProvisionOutcome struct {
	Success          bool
	Pending          bool
	ExternalUserID   string
	ExternalEmail    string
	ExternalUsername string
	Resources        *ProvisionedResources
	Message          string
}

// ApplyProvisionOutcome records a provision attempt. External identifiers are
// only overwritten when the connector returned them. A successful attempt
// replaces the resource record; a failed one only adds what it applied, so
// grants from earlier attempts stay known to deprovisioning.
func (a *AppAccount) ApplyProvisionOutcome(o ProvisionOutcome, now time.Time) {
	switch {
	case o.Success && o.Pending:
		a.Status = StatusPending
	case o.Success:
		a.Status = StatusActive
	default:
		a.Status = StatusFailed
	}
	if o.ExternalUserID != "" {
		a.ExternalUserID = o.ExternalUserID
	}
	if o.ExternalEmail != "" {
		a.ExternalEmail = o.ExternalEmail
	}
	if o.ExternalUsername != "" {
		a.ExternalUsername = o.ExternalUsername
	}
	switch {
	case o.Resources == nil || o.Resources.IsEmpty():
	case o.Success || a.ProvisionedResources == nil:
		r := *o.Resources
		a.ProvisionedResources = &r
	default:
		merged := a.ProvisionedResources.Merge(*o.Resources)
		a.ProvisionedResources = &merged
	}
	a.StatusMessage = o.Message
	a.DeprovisionedAt = nil
	a.LastSyncAt = &now
	a.UpdatedAt = now
}

// MarkDeprovisioned records a successful revocation.
func (a *AppAccount) MarkDeprovisioned(message string, now time.Time) {
	a.Status = StatusDeprovisioned
	a.StatusMessage = message
	a.DeprovisionedAt = &now
	a.LastSyncAt = &now
	a.UpdatedAt = now
}

// MarkDisabled records a local-only revocation when no connector is available.
func (a *AppAccount) MarkDisabled(message string, now time.Time) {
	a.Status = StatusDisabled
	a.StatusMessage = message
	a.DeprovisionedAt = &now
	a.LastSyncAt = &now
	a.UpdatedAt = now
}

// MarkDeprovisionFailed records a failed revocation; access may still be live.
func (a *AppAccount) MarkDeprovisionFailed(message string, now time.Time) {
	a.Status = StatusFailed
	a.StatusMessage = message
	a.LastSyncAt = &now
	a.UpdatedAt = now
}

// DeprovisionOptions are exit parameters forwarded to connectors.
type DeprovisionOptions struct {
	// DataTransferTo is the address that receives the leaver's documents.
	DataTransferTo string `json:"dataTransferTo,omitempty"`
	// TransferDrive includes drive files in the data transfer.
	TransferDrive bool `json:"transferDrive,omitempty"`
	// AliasToEmail keeps the leaver's address alive as an alias on this user.
	AliasToEmail string `json:"aliasToEmail,omitempty"`
	// SuspendInsteadOfDelete suspends the external user instead of deleting it.
	SuspendInsteadOfDelete bool `json:"suspendInsteadOfDelete,omitempty"`
	// Reason is recorded where providers accept one.
	Reason string `json:"reason,omitempty"`
}
