// Package issuetracker connects Jira-style issue trackers.
package issuetracker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	account "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
)

const provider = integration.ProviderJira

type Settings struct {
	SiteURL     string `json:"siteUrl"`
	Email       string `json:"email"`
	APIToken    string `json:"apiToken"`
	BearerToken string `json:"bearerToken"`
	// Products granted to invited users, e.g. "jira-software".
	Products []string `json:"products"`
}

func (s Settings) Provider() integration.Provider { return provider }

func (s Settings) Validate() error {
	if s.BearerToken != "" {
		return connector.Require(provider, connector.Field{Name: "siteUrl", Value: s.SiteURL})
	}
	return connector.Require(provider,
		connector.Field{Name: "siteUrl", Value: s.SiteURL},
		connector.Field{Name: "email", Value: s.Email},
		connector.Field{Name: "apiToken", Value: s.APIToken},
	)
}

type Connector struct {
	settings Settings
	client   *connector.HTTPClient
	logger   *slog.Logger
}

func New(settings Settings, opts ...connector.Option) *Connector {
	cfg := connector.NewConfig(opts...)
	chain := connector.NewAuthChain(
		connector.BearerCredential("bearer", settings.BearerToken),
		basic(settings),
	)
	return &Connector{
		settings: settings,
		client:   cfg.Client(provider, settings.SiteURL, connector.WithAuth(chain)),
		logger:   cfg.Logger,
	}
}

func basic(s Settings) connector.Credential {
	if s.Email == "" || s.APIToken == "" {
		return connector.Credential{Name: "basic"}
	}
	return connector.BasicCredential("basic", s.Email, s.APIToken)
}

type user struct {
	AccountID    string `json:"accountId"`
	EmailAddress string `json:"emailAddress"`
	DisplayName  string `json:"displayName"`
	Active       bool   `json:"active"`
}

// findUser searches by email. Sites that hide emails return a single
// candidate for an exact query, which is accepted.
func (c *Connector) findUser(ctx context.Context, email string) (user, bool, error) {
	var users []user
	if err := c.client.Get(ctx, "/rest/api/3/user/search", url.Values{"query": {email}}, &users); err != nil {
		return user{}, false, err
	}
	for _, u := range users {
		if strings.EqualFold(u.EmailAddress, email) {
			return u, true, nil
		}
	}
	if len(users) == 1 && users[0].EmailAddress == "" {
		return users[0], true, nil
	}
	return user{}, false, nil
}

func (c *Connector) Provision(ctx context.Context, req connector.ProvisionRequest) connector.ProvisionResult {
	email := req.Employee.PreferredEmail()
	if email == "" {
		return connector.ProvisionFailed(connector.NewError(provider, connector.CategoryConfiguration, "employee has no email"), account.ProvisionedResources{})
	}
	data := connector.ResolveGrants(ctx, c.logger, req.Employee, provider, req.Rules)

	u, found, err := c.findUser(ctx, email)
	if err != nil {
		return connector.ProvisionFailed(connector.AsError(provider, err), account.ProvisionedResources{})
	}
	var notice *connector.Notice
	if !found {
		products := c.settings.Products
		if len(products) == 0 {
			products = []string{"jira-software"}
		}
		if err := c.client.Post(ctx, "/rest/api/3/user", map[string]any{
			"emailAddress": email,
			"displayName":  req.Employee.FullName,
			"products":     products,
		}, &u); err != nil {
			return connector.ProvisionFailed(connector.AsError(provider, err), account.ProvisionedResources{})
		}
		notice = &connector.Notice{Kind: connector.NoticeInvitation, Email: email, Detail: "Jira site invitation"}
	}

	var res account.ProvisionedResources
	plan := connector.NewGrantPlan(provider)
	for _, group := range data.Groups {
		plan.Add("group:"+group, func(ctx context.Context) error {
			err := c.client.Post(ctx, "/rest/api/3/group/user?"+url.Values{"groupname": {group}}.Encode(),
				map[string]string{"accountId": u.AccountID}, nil)
			if err != nil && !alreadyMember(err) {
				return err
			}
			res.Groups = append(res.Groups, group)
			return nil
		})
	}
	for _, role := range data.ProjectRoles {
		plan.Add("project-role:"+role.ProjectID+"/"+role.RoleID, func(ctx context.Context) error {
			path := "/rest/api/3/project/" + url.PathEscape(role.ProjectID) + "/role/" + url.PathEscape(role.RoleID)
			if err := c.client.Post(ctx, path, map[string][]string{"user": {u.AccountID}}, nil); err != nil && !alreadyMember(err) {
				return err
			}
			res.ProjectRoles = append(res.ProjectRoles, role)
			return nil
		})
	}
	outcome := plan.Execute(ctx)
	res.Applied = outcome.Applied
	if outcome.Err != nil {
		res.Partial = outcome.Partial()
		failed := connector.ProvisionFailed(outcome.Err, res)
		failed.ExternalUserID = u.AccountID
		return failed
	}
	return connector.ProvisionResult{
		Success:          true,
		ExternalUserID:   u.AccountID,
		ExternalEmail:    email,
		ExternalUsername: u.DisplayName,
		Resources:        res,
		Notice:           notice,
	}
}

// alreadyMember treats Jira's "already a member" rejections as success.
func alreadyMember(err error) bool {
	var se *connector.StatusError
	if !errors.As(err, &se) {
		return false
	}
	if se.StatusCode != http.StatusBadRequest && se.StatusCode != http.StatusConflict {
		return false
	}
	return strings.Contains(strings.ToLower(se.Body), "already")
}

// Deprovision removes the user from the groups recorded at provisioning.
func (c *Connector) Deprovision(ctx context.Context, req connector.DeprovisionRequest) connector.DeprovisionResult {
	accountID := ""
	if req.Account != nil {
		accountID = req.Account.ExternalUserID
	}
	if accountID == "" && req.Employee != nil {
		u, found, err := c.findUser(ctx, req.Employee.PreferredEmail())
		if err != nil {
			return connector.DeprovisionFailed(connector.AsError(provider, err))
		}
		if !found {
			return connector.DeprovisionResult{Success: true, Note: "user not found in Jira; nothing to remove"}
		}
		accountID = u.AccountID
	}
	if accountID == "" {
		return connector.DeprovisionResult{Success: true, Note: "no Jira user recorded; nothing to remove"}
	}

	var groups []string
	if req.Account != nil && req.Account.ProvisionedResources != nil {
		groups = req.Account.ProvisionedResources.Groups
	}
	plan := connector.NewGrantPlan(provider)
	for _, group := range groups {
		plan.Add("group:"+group, func(ctx context.Context) error {
			_, err := c.client.Do(ctx, connector.Request{
				Method: http.MethodDelete,
				Path:   "/rest/api/3/group/user",
				Query:  url.Values{"groupname": {group}, "accountId": {accountID}},
			})
			if connector.HasStatus(err, http.StatusNotFound) {
				return nil
			}
			return err
		})
	}
	if outcome := plan.Execute(ctx); outcome.Err != nil {
		return connector.DeprovisionFailed(outcome.Err)
	}
	return connector.DeprovisionResult{Success: true, Note: "removed from groups"}
}

func (c *Connector) TestConnection(ctx context.Context) connector.TestResult {
	var me user
	if err := c.client.Get(ctx, "/rest/api/3/myself", nil, &me); err != nil {
		return connector.TestFailed(connector.AsError(provider, err))
	}
	return connector.TestOK("connected as " + me.DisplayName)
}
