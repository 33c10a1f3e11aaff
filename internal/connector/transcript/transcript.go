// Package transcript connects meeting-transcript tools. They have no user
// lifecycle, so provisioning is a declared no-op.
package transcript

import (
	"context"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
)

const defaultBaseURL = "https://api.fireflies.ai"

type Settings struct {
	APIKey string `json:"apiKey"`
}

func (s Settings) Provider() integration.Provider { return integration.ProviderFireflies }

func (s Settings) Validate() error {
	return connector.Require(integration.ProviderFireflies, connector.Field{Name: "apiKey", Value: s.APIKey})
}

type Connector struct {
	client *connector.HTTPClient
}

func New(settings Settings, opts ...connector.Option) *Connector {
	cfg := connector.NewConfig(opts...)
	return &Connector{
		client: cfg.Client(integration.ProviderFireflies, defaultBaseURL, connector.WithBearer(settings.APIKey)),
	}
}

func (c *Connector) Provision(_ context.Context, req connector.ProvisionRequest) connector.ProvisionResult {
	note := connector.Unsupported(integration.ProviderFireflies, "user provisioning")
	res := connector.ProvisionResult{Success: true, Note: note.Error()}
	if req.Employee != nil {
		res.ExternalEmail = req.Employee.PreferredEmail()
	}
	return res
}

func (c *Connector) Deprovision(context.Context, connector.DeprovisionRequest) connector.DeprovisionResult {
	note := connector.Unsupported(integration.ProviderFireflies, "user deprovisioning")
	return connector.DeprovisionResult{Success: true, Note: note.Error()}
}

type graphQLResponse struct {
	Data struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// TestConnection validates the API key with a single query.
func (c *Connector) TestConnection(ctx context.Context) connector.TestResult {
	var out graphQLResponse
	err := c.client.Post(ctx, "/graphql", map[string]string{"query": "{ user { email } }"}, &out)
	if err != nil {
		return connector.TestFailed(connector.AsError(integration.ProviderFireflies, err))
	}
	if len(out.Errors) > 0 {
		return connector.TestFailed(connector.NewError(integration.ProviderFireflies, connector.CategoryAuthentication, out.Errors[0].Message))
	}
	return connector.TestOK("connected as " + out.Data.User.Email)
}
