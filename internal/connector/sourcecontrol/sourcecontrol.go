// Package sourcecontrol connects Bitbucket-style workspaces.
package sourcecontrol

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	account "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
)

const (
	defaultBaseURL = "https://api.bitbucket.org/2.0"
	provider       = integration.ProviderBitbucket
)

type Settings struct {
	Workspace   string `json:"workspace"`
	APIToken    string `json:"apiToken"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	AppPassword string `json:"appPassword"`
}

func (s Settings) Provider() integration.Provider { return provider }

// Validate requires a workspace and either an API token or an app password.
func (s Settings) Validate() error {
	if err := connector.Require(provider, connector.Field{Name: "workspace", Value: s.Workspace}); err != nil {
		return err
	}
	if s.APIToken != "" {
		return nil
	}
	return connector.Require(provider,
		connector.Field{Name: "username", Value: s.Username},
		connector.Field{Name: "appPassword", Value: s.AppPassword},
	)
}

// credentials lists auth candidates in the order they are tried.
func (s Settings) credentials() []connector.Credential {
	var creds []connector.Credential
	if s.APIToken != "" {
		creds = append(creds, connector.BearerCredential("api-token", s.APIToken))
		if s.Email != "" {
			creds = append(creds, connector.BasicCredential("email-token", s.Email, s.APIToken))
		}
	}
	if s.Username != "" && s.AppPassword != "" {
		creds = append(creds, connector.BasicCredential("app-password", s.Username, s.AppPassword))
	}
	return creds
}

type Connector struct {
	settings Settings
	client   *connector.HTTPClient
	// groups is the 1.0 API root, where group membership still lives.
	groups string
	logger *slog.Logger
}

func New(settings Settings, opts ...connector.Option) *Connector {
	cfg := connector.NewConfig(opts...)
	client := cfg.Client(provider, defaultBaseURL, connector.WithAuth(connector.NewAuthChain(settings.credentials()...)))
	return &Connector{
		settings: settings,
		client:   client,
		groups:   strings.TrimSuffix(client.BaseURL(), "/2.0") + "/1.0/groups/" + url.PathEscape(settings.Workspace),
		logger:   cfg.Logger,
	}
}

type member struct {
	User struct {
		UUID        string `json:"uuid"`
		AccountID   string `json:"account_id"`
		Nickname    string `json:"nickname"`
		DisplayName string `json:"display_name"`
		Email       string `json:"email"`
	} `json:"user"`
}

type membersPage struct {
	Values []member `json:"values"`
	Next   string   `json:"next"`
}

func (c *Connector) findMember(ctx context.Context, email string) (member, bool, error) {
	fetch := func(ctx context.Context, next string) (connector.Page[member], error) {
		path := next
		var query url.Values
		if path == "" {
			path = "/workspaces/" + url.PathEscape(c.settings.Workspace) + "/members"
			query = url.Values{"pagelen": {"100"}}
		}
		var page membersPage
		if err := c.client.Get(ctx, path, query, &page); err != nil {
			return connector.Page[member]{}, err
		}
		return connector.Page[member]{Items: page.Values, Next: page.Next}, nil
	}
	return connector.FindFirst(ctx, fetch, connector.DefaultMaxPages, func(m member) bool {
		return strings.EqualFold(m.User.Email, email)
	})
}

func (c *Connector) Provision(ctx context.Context, req connector.ProvisionRequest) connector.ProvisionResult {
	email := req.Employee.PreferredEmail()
	if email == "" {
		return connector.ProvisionFailed(connector.NewError(provider, connector.CategoryConfiguration, "employee has no email"), account.ProvisionedResources{})
	}
	data := connector.ResolveGrants(ctx, c.logger, req.Employee, provider, req.Rules)

	m, found, err := c.findMember(ctx, email)
	if err != nil {
		return connector.ProvisionFailed(connector.AsError(provider, err), account.ProvisionedResources{})
	}
	if !found {
		return connector.ProvisionFailed(connector.NotInvited(provider, email, "the "+c.settings.Workspace+" Bitbucket workspace"), account.ProvisionedResources{})
	}

	var res account.ProvisionedResources
	plan := connector.NewGrantPlan(provider)
	for _, group := range data.Groups {
		plan.Add("group:"+group, func(ctx context.Context) error {
			path := c.groups + "/" + url.PathEscape(group) + "/members/" + url.PathEscape(m.User.UUID)
			if err := c.client.Put(ctx, path, map[string]any{}, nil); err != nil && !connector.HasStatus(err, http.StatusConflict) {
				return err
			}
			res.Groups = append(res.Groups, group)
			return nil
		})
	}
	for _, repo := range data.Repositories {
		plan.Add("repository:"+repo.Slug+":"+string(repo.Permission), func(ctx context.Context) error {
			if err := c.client.Put(ctx, c.permissionPath(repo.Slug, m.User.AccountID), map[string]string{"permission": string(repo.Permission)}, nil); err != nil {
				return err
			}
			res.Repositories = append(res.Repositories, repo)
			return nil
		})
	}
	outcome := plan.Execute(ctx)
	res.Applied = outcome.Applied
	if outcome.Err != nil {
		res.Partial = outcome.Partial()
		failed := connector.ProvisionFailed(outcome.Err, res)
		failed.ExternalUserID = m.User.UUID
		return failed
	}
	return connector.ProvisionResult{
		Success:          true,
		ExternalUserID:   m.User.UUID,
		ExternalEmail:    email,
		ExternalUsername: m.User.Nickname,
		Resources:        res,
	}
}

func (c *Connector) permissionPath(slug, accountID string) string {
	return "/repositories/" + url.PathEscape(c.settings.Workspace) + "/" + url.PathEscape(slug) +
		"/permissions-config/users/" + url.PathEscape(accountID)
}

// Deprovision removes recorded group memberships, then repository permissions.
// Grants that are already gone are skipped.
func (c *Connector) Deprovision(ctx context.Context, req connector.DeprovisionRequest) connector.DeprovisionResult {
	var (
		uuid      string
		accountID string
	)
	if req.Account != nil {
		uuid = req.Account.ExternalUserID
	}
	needLookup := uuid == ""
	if req.Account != nil && req.Account.ProvisionedResources != nil && len(req.Account.ProvisionedResources.Repositories) > 0 {
		needLookup = true
	}
	if needLookup && req.Employee != nil {
		m, found, err := c.findMember(ctx, req.Employee.PreferredEmail())
		if err != nil {
			return connector.DeprovisionFailed(connector.AsError(provider, err))
		}
		if found {
			uuid, accountID = m.User.UUID, m.User.AccountID
		}
	}
	if uuid == "" {
		return connector.DeprovisionResult{Success: true, Note: "not a workspace member; nothing to remove"}
	}

	var recorded account.ProvisionedResources
	if req.Account != nil && req.Account.ProvisionedResources != nil {
		recorded = *req.Account.ProvisionedResources
	}
	plan := connector.NewGrantPlan(provider)
	for _, group := range recorded.Groups {
		plan.Add("group:"+group, func(ctx context.Context) error {
			return ignoreMissing(c.client.Delete(ctx, c.groups+"/"+url.PathEscape(group)+"/members/"+url.PathEscape(uuid)))
		})
	}
	if accountID != "" {
		for _, repo := range recorded.Repositories {
			plan.Add("repository:"+repo.Slug, func(ctx context.Context) error {
				return ignoreMissing(c.client.Delete(ctx, c.permissionPath(repo.Slug, accountID)))
			})
		}
	}
	if outcome := plan.Execute(ctx); outcome.Err != nil {
		return connector.DeprovisionFailed(outcome.Err)
	}
	return connector.DeprovisionResult{Success: true, Note: "workspace access revoked"}
}

func ignoreMissing(err error) error {
	if connector.HasStatus(err, http.StatusNotFound) {
		return nil
	}
	return err
}

func (c *Connector) TestConnection(ctx context.Context) connector.TestResult {
	var ws struct {
		Name string `json:"name"`
	}
	if err := c.client.Get(ctx, "/workspaces/"+url.PathEscape(c.settings.Workspace), nil, &ws); err != nil {
		return connector.TestFailed(connector.AsError(provider, err))
	}
	return connector.TestOK("workspace " + ws.Name + " reachable")
}
