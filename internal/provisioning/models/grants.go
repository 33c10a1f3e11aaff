package models

import "strings"

// Permission is a repository access level.
type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
	PermissionAdmin Permission = "admin"
)

var permissionRank = map[Permission]int{
	PermissionRead:  1,
	PermissionWrite: 2,
	PermissionAdmin: 3,
}

// Rank orders permissions read < write < admin. Unknown values rank 0.
func (p Permission) Rank() int {
	return permissionRank[Permission(strings.ToLower(string(p)))]
}

// RepositoryGrant gives a permission on one repository, keyed by Slug.
type RepositoryGrant struct {
	Slug       string     `json:"slug"`
	Permission Permission `json:"permission"`
}

// ProjectRole assigns a role in a project, keyed by (ProjectID, RoleID).
type ProjectRole struct {
	ProjectID string `json:"projectId"`
	RoleID    string `json:"roleId"`
}

// Key identifies the assignment for de-duplication.
func (r ProjectRole) Key() string {
	return r.ProjectID + "\x00" + r.RoleID
}

// ProvisionData is the grant payload of a rule, and the merged result for a
// provider. Which fields are honoured depends on the provider's merge policy:
//
//	directory       {orgUnitPath?, groups[]}
//	chat            {channels[], userGroups[]}
//	source control  {groups[], repositories[{slug, permission}]}
//	issue tracker   {groups[], projectRoles[{projectId, roleId}]}
//	everything else {groups[]}
type ProvisionData struct {
	OrgUnitPath  string            `json:"orgUnitPath,omitempty"`
	Groups       []string          `json:"groups,omitempty"`
	Channels     []string          `json:"channels,omitempty"`
	UserGroups   []string          `json:"userGroups,omitempty"`
	Repositories []RepositoryGrant `json:"repositories,omitempty"`
	ProjectRoles []ProjectRole     `json:"projectRoles,omitempty"`
}

// IsEmpty reports whether no grant is present.
func (d ProvisionData) IsEmpty() bool {
	return d.OrgUnitPath == "" && len(d.Groups) == 0 && len(d.Channels) == 0 &&
		len(d.UserGroups) == 0 && len(d.Repositories) == 0 && len(d.ProjectRoles) == 0
}
