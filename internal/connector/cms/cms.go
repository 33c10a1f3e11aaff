// Package cms connects site builders. Editors are managed by the CMS
// itself, so provisioning is a declared no-op.
package cms

import (
	"context"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
)

const defaultBaseURL = "https://api.webflow.com/v2"

type Settings struct {
	APIToken string `json:"apiToken"`
	SiteID   string `json:"siteId"`
}

func (s Settings) Provider() integration.Provider { return integration.ProviderWebflow }

func (s Settings) Validate() error {
	return connector.Require(integration.ProviderWebflow, connector.Field{Name: "apiToken", Value: s.APIToken})
}

type Connector struct {
	settings Settings
	client   *connector.HTTPClient
}

func New(settings Settings, opts ...connector.Option) *Connector {
	cfg := connector.NewConfig(opts...)
	return &Connector{
		settings: settings,
		client:   cfg.Client(integration.ProviderWebflow, defaultBaseURL, connector.WithBearer(settings.APIToken)),
	}
}

func (c *Connector) Provision(_ context.Context, req connector.ProvisionRequest) connector.ProvisionResult {
	note := connector.Unsupported(integration.ProviderWebflow, "user provisioning")
	res := connector.ProvisionResult{Success: true, Note: note.Error()}
	if req.Employee != nil {
		res.ExternalEmail = req.Employee.PreferredEmail()
	}
	return res
}

func (c *Connector) Deprovision(context.Context, connector.DeprovisionRequest) connector.DeprovisionResult {
	note := connector.Unsupported(integration.ProviderWebflow, "user deprovisioning")
	return connector.DeprovisionResult{Success: true, Note: note.Error()}
}

type site struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// TestConnection reads the configured site, or lists sites when none is set.
func (c *Connector) TestConnection(ctx context.Context) connector.TestResult {
	if c.settings.SiteID != "" {
		var s site
		if err := c.client.Get(ctx, "/sites/"+c.settings.SiteID, nil, &s); err != nil {
			return connector.TestFailed(connector.AsError(integration.ProviderWebflow, err))
		}
		return connector.TestOK("site " + s.DisplayName + " reachable")
	}
	var out struct {
		Sites []site `json:"sites"`
	}
	if err := c.client.Get(ctx, "/sites", nil, &out); err != nil {
		return connector.TestFailed(connector.AsError(integration.ProviderWebflow, err))
	}
	return connector.TestOK("token valid")
}
