// Package crm connects HubSpot-style CRMs through their user settings API.
package crm

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	account "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
)

const (
	defaultBaseURL = "https://api.hubapi.com"
	provider       = integration.ProviderHubSpot
	usersPath      = "/settings/v3/users"
	pageSize       = "100"
)

type Settings struct {
	AccessToken   string `json:"accessToken"`
	DefaultRoleID string `json:"defaultRoleId"`
}

func (s Settings) Provider() integration.Provider { return provider }

func (s Settings) Validate() error {
	return connector.Require(provider, connector.Field{Name: "accessToken", Value: s.AccessToken})
}

type Connector struct {
	settings Settings
	client   *connector.HTTPClient
}

func New(settings Settings, opts ...connector.Option) *Connector {
	cfg := connector.NewConfig(opts...)
	return &Connector{
		settings: settings,
		client:   cfg.Client(provider, defaultBaseURL, connector.WithBearer(settings.AccessToken)),
	}
}

type user struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	RoleID string `json:"roleId,omitempty"`
}

type usersPage struct {
	Results []user `json:"results"`
	Paging  struct {
		Next struct {
			After string `json:"after"`
		} `json:"next"`
	} `json:"paging"`
}

func (c *Connector) findByEmail(ctx context.Context, email string) (user, bool, error) {
	fetch := func(ctx context.Context, after string) (connector.Page[user], error) {
		q := url.Values{"limit": {pageSize}}
		if after != "" {
			q.Set("after", after)
		}
		var page usersPage
		if err := c.client.Get(ctx, usersPath, q, &page); err != nil {
			return connector.Page[user]{}, err
		}
		return connector.Page[user]{Items: page.Results, Next: page.Paging.Next.After}, nil
	}
	return connector.FindFirst(ctx, fetch, connector.DefaultMaxPages, func(u user) bool {
		return strings.EqualFold(u.Email, email)
	})
}

func (c *Connector) Provision(ctx context.Context, req connector.ProvisionRequest) connector.ProvisionResult {
	email := req.Employee.PreferredEmail()
	if email == "" {
		return connector.ProvisionFailed(connector.NewError(provider, connector.CategoryConfiguration, "employee has no email"), account.ProvisionedResources{})
	}
	existing, found, err := c.findByEmail(ctx, email)
	if err != nil {
		return connector.ProvisionFailed(connector.AsError(provider, err), account.ProvisionedResources{})
	}
	if found {
		return connector.ProvisionResult{Success: true, ExternalUserID: existing.ID, ExternalEmail: existing.Email}
	}

	body := map[string]any{"email": email, "sendWelcomeEmail": true}
	if c.settings.DefaultRoleID != "" {
		body["roleId"] = c.settings.DefaultRoleID
	}
	var created user
	if err := c.client.Post(ctx, usersPath, body, &created); err != nil {
		return connector.ProvisionFailed(connector.AsError(provider, err), account.ProvisionedResources{})
	}
	return connector.ProvisionResult{
		Success:        true,
		ExternalUserID: created.ID,
		ExternalEmail:  email,
		Note:           "user created; HubSpot sends the welcome email",
	}
}

// Deprovision deletes the user. A user that no longer exists counts as removed.
func (c *Connector) Deprovision(ctx context.Context, req connector.DeprovisionRequest) connector.DeprovisionResult {
	userID := ""
	if req.Account != nil {
		userID = req.Account.ExternalUserID
	}
	if userID == "" && req.Employee != nil {
		u, found, err := c.findByEmail(ctx, req.Employee.PreferredEmail())
		if err != nil {
			return connector.DeprovisionFailed(connector.AsError(provider, err))
		}
		if !found {
			return connector.DeprovisionResult{Success: true, Note: "user not found in HubSpot; nothing to remove"}
		}
		userID = u.ID
	}
	if userID == "" {
		return connector.DeprovisionResult{Success: true, Note: "no HubSpot user recorded; nothing to remove"}
	}

	err := c.client.Delete(ctx, usersPath+"/"+url.PathEscape(userID))
	if connector.HasStatus(err, http.StatusNotFound) {
		return connector.DeprovisionResult{Success: true, Note: "user already removed"}
	}
	if err != nil {
		return connector.DeprovisionFailed(connector.AsError(provider, err))
	}
	return connector.DeprovisionResult{Success: true, Note: "user deleted"}
}

func (c *Connector) TestConnection(ctx context.Context) connector.TestResult {
	if err := c.client.Get(ctx, usersPath, url.Values{"limit": {"1"}}, nil); err != nil {
		return connector.TestFailed(connector.AsError(provider, err))
	}
	return connector.TestOK("HubSpot users API reachable")
}
