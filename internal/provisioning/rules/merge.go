package rules

import (
	"strings"

	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/provisioning/models"
	pstrings "github.com/CuracelDev/curacel-peoplev2-sub001/pkg/platform/strings"
)

// mergePolicy folds one matching rule's data into the accumulator. Rules
// arrive in descending priority order.
type mergePolicy func(acc *models.ProvisionData, next models.ProvisionData)

var policies = map[integration.Kind]mergePolicy{
	integration.KindDirectory:     mergeDirectory,
	integration.KindChat:          mergeChat,
	integration.KindSourceControl: mergeSourceControl,
	integration.KindIssueTracker:  mergeIssueTracker,
}

func policyFor(kind integration.Kind) mergePolicy {
	if p, ok := policies[kind]; ok {
		return p
	}
	return mergeGroups
}

// mergeDirectory: org unit is first-wins, groups are a union.
func mergeDirectory(acc *models.ProvisionData, next models.ProvisionData) {
	if acc.OrgUnitPath == "" {
		acc.OrgUnitPath = strings.TrimSpace(next.OrgUnitPath)
	}
	acc.Groups = pstrings.Union(acc.Groups, next.Groups)
}

// mergeChat: channels and user groups are unions.
func mergeChat(acc *models.ProvisionData, next models.ProvisionData) {
	acc.Channels = pstrings.Union(acc.Channels, next.Channels)
	acc.UserGroups = pstrings.Union(acc.UserGroups, next.UserGroups)
}

// mergeSourceControl: groups are a union; repositories are keyed by slug and
// keep the highest-ranked permission. A repository keeps the position of its
// first appearance.
func mergeSourceControl(acc *models.ProvisionData, next models.ProvisionData) {
	acc.Groups = pstrings.Union(acc.Groups, next.Groups)

	index := make(map[string]int, len(acc.Repositories))
	for i, r := range acc.Repositories {
		index[strings.ToLower(r.Slug)] = i
	}
	for _, r := range next.Repositories {
		slug := strings.TrimSpace(r.Slug)
		perm := models.Permission(strings.ToLower(string(r.Permission)))
		if slug == "" || perm.Rank() == 0 {
			continue
		}
		key := strings.ToLower(slug)
		if i, ok := index[key]; ok {
			if perm.Rank() > acc.Repositories[i].Permission.Rank() {
				acc.Repositories[i].Permission = perm
			}
			continue
		}
		index[key] = len(acc.Repositories)
		acc.Repositories = append(acc.Repositories, models.RepositoryGrant{Slug: slug, Permission: perm})
	}
}

// mergeIssueTracker: groups are a union; project roles de-duplicate on (project, role).
func mergeIssueTracker(acc *models.ProvisionData, next models.ProvisionData) {
	acc.Groups = pstrings.Union(acc.Groups, next.Groups)

	seen := make(map[string]struct{}, len(acc.ProjectRoles))
	for _, r := range acc.ProjectRoles {
		seen[r.Key()] = struct{}{}
	}
	for _, r := range next.ProjectRoles {
		r.ProjectID = strings.TrimSpace(r.ProjectID)
		r.RoleID = strings.TrimSpace(r.RoleID)
		if r.ProjectID == "" || r.RoleID == "" {
			continue
		}
		if _, dup := seen[r.Key()]; dup {
			continue
		}
		seen[r.Key()] = struct{}{}
		acc.ProjectRoles = append(acc.ProjectRoles, r)
	}
}

// mergeGroups is the default for providers that only understand groups.
func mergeGroups(acc *models.ProvisionData, next models.ProvisionData) {
	acc.Groups = pstrings.Union(acc.Groups, next.Groups)
}
