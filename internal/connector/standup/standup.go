// Package standup removes leavers from the async standup tool.
package standup

import (
	"context"
	"net/http"
	"net/url"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
)

type Settings struct {
	APIURL string `json:"apiUrl"`
	APIKey string `json:"apiKey"`
}

func (s Settings) Provider() integration.Provider { return integration.ProviderStandup }

func (s Settings) Validate() error {
	return connector.Require(integration.ProviderStandup,
		connector.Field{Name: "apiUrl", Value: s.APIURL},
		connector.Field{Name: "apiKey", Value: s.APIKey},
	)
}

type Connector struct {
	client *connector.HTTPClient
}

func New(settings Settings, opts ...connector.Option) *Connector {
	cfg := connector.NewConfig(opts...)
	return &Connector{
		client: cfg.Client(integration.ProviderStandup, settings.APIURL, connector.WithHeader("X-API-Key", settings.APIKey)),
	}
}

// Provision is a no-op: members join standups from the tool itself.
func (c *Connector) Provision(_ context.Context, req connector.ProvisionRequest) connector.ProvisionResult {
	note := connector.Unsupported(integration.ProviderStandup, "user provisioning")
	res := connector.ProvisionResult{Success: true, Note: note.Error()}
	if req.Employee != nil {
		res.ExternalEmail = req.Employee.PreferredEmail()
	}
	return res
}

// Deprovision removes the member by email. A member that is already gone
// counts as removed.
func (c *Connector) Deprovision(ctx context.Context, req connector.DeprovisionRequest) connector.DeprovisionResult {
	address := ""
	if req.Account != nil && req.Account.ExternalEmail != "" {
		address = req.Account.ExternalEmail
	} else if req.Employee != nil {
		address = req.Employee.PreferredEmail()
	}
	if address == "" {
		return connector.DeprovisionFailed(connector.NewError(integration.ProviderStandup, connector.CategoryConfiguration, "employee has no email to remove"))
	}
	err := c.client.Delete(ctx, "/members/"+url.PathEscape(address))
	if connector.HasStatus(err, http.StatusNotFound) {
		return connector.DeprovisionResult{Success: true, Note: address + " was not a standup member"}
	}
	if err != nil {
		return connector.DeprovisionFailed(connector.AsError(integration.ProviderStandup, err))
	}
	return connector.DeprovisionResult{Success: true, Note: "removed " + address + " from standups"}
}

func (c *Connector) TestConnection(ctx context.Context) connector.TestResult {
	if err := c.client.Get(ctx, "/members", url.Values{"limit": {"1"}}, nil); err != nil {
		return connector.TestFailed(connector.AsError(integration.ProviderStandup, err))
	}
	return connector.TestOK("standup API reachable")
}
