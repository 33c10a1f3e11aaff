// Package webhook forwards lifecycle events to customer-operated endpoints.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	account "github.com/CuracelDev/curacel-peoplev2-sub001/internal/account/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	employee "github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/models"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	provisioning "github.com/CuracelDev/curacel-peoplev2-sub001/internal/provisioning/models"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "X-Signature"

// Settings are the generic webhook fields. Any integration may carry them.
type Settings struct {
	ProvisionURL   string `json:"provisionUrl"`
	DeprovisionURL string `json:"deprovisionUrl"`
	TestURL        string `json:"testUrl"`
	Secret         string `json:"secret"`
}

func (s Settings) Provider() integration.Provider { return integration.ProviderWebhook }

// Configured reports whether any endpoint is set.
func (s Settings) Configured() bool {
	return strings.TrimSpace(s.ProvisionURL) != "" ||
		strings.TrimSpace(s.DeprovisionURL) != "" ||
		strings.TrimSpace(s.TestURL) != ""
}

func (s Settings) Validate() error {
	if !s.Configured() {
		return connector.NewError(integration.ProviderWebhook, connector.CategoryConfiguration,
			"missing required settings: provisionUrl, deprovisionUrl or testUrl")
	}
	return nil
}

// Connector posts signed JSON events.
type Connector struct {
	settings Settings
	provider integration.Provider
	client   *connector.HTTPClient
	logger   *slog.Logger
}

// New builds a webhook connector acting for provider.
func New(provider integration.Provider, settings Settings, opts ...connector.Option) *Connector {
	cfg := connector.NewConfig(opts...)
	return &Connector{
		settings: settings,
		provider: provider,
		client:   cfg.Client(provider, ""),
		logger:   cfg.Logger,
	}
}

type employeePayload struct {
	ID             string `json:"id"`
	FullName       string `json:"fullName"`
	WorkEmail      string `json:"workEmail,omitempty"`
	PersonalEmail  string `json:"personalEmail,omitempty"`
	Department     string `json:"department,omitempty"`
	Location       string `json:"location,omitempty"`
	JobTitle       string `json:"jobTitle,omitempty"`
	EmploymentType string `json:"employmentType,omitempty"`
}

type integrationPayload struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Name     string `json:"name"`
}

type event struct {
	Event         string                      `json:"event"`
	Employee      *employeePayload            `json:"employee,omitempty"`
	Integration   *integrationPayload         `json:"integration,omitempty"`
	ProvisionData *provisioning.ProvisionData `json:"provisionData,omitempty"`
	Account       *accountPayload             `json:"account,omitempty"`
	Options       *account.DeprovisionOptions `json:"options,omitempty"`
}

type accountPayload struct {
	ExternalUserID   string `json:"externalUserId,omitempty"`
	ExternalEmail    string `json:"externalEmail,omitempty"`
	ExternalUsername string `json:"externalUsername,omitempty"`
}

type reply struct {
	ExternalUserID   string `json:"externalUserId"`
	ExternalEmail    string `json:"externalEmail"`
	ExternalUsername string `json:"externalUsername"`
	Message          string `json:"message"`
}

func toEmployee(e *employee.Employee) *employeePayload {
	if e == nil {
		return nil
	}
	return &employeePayload{
		ID:             e.ID.String(),
		FullName:       e.FullName,
		WorkEmail:      e.WorkEmail,
		PersonalEmail:  e.PersonalEmail,
		Department:     e.Department,
		Location:       e.Location,
		JobTitle:       e.JobTitle,
		EmploymentType: e.EmploymentType,
	}
}

func toIntegration(i *integration.Integration) *integrationPayload {
	if i == nil {
		return nil
	}
	return &integrationPayload{ID: i.ID.String(), Provider: string(i.Provider), Name: i.Name}
}

func (c *Connector) Provision(ctx context.Context, req connector.ProvisionRequest) connector.ProvisionResult {
	if c.settings.ProvisionURL == "" {
		return connector.ProvisionFailed(connector.NewError(c.provider, connector.CategoryConfiguration, "provisionUrl is not set"), account.ProvisionedResources{})
	}
	provider := c.provider
	if req.Integration != nil {
		provider = req.Integration.Provider
	}
	data := connector.ResolveGrants(ctx, c.logger, req.Employee, provider, req.Rules)

	var out reply
	if err := c.post(ctx, c.settings.ProvisionURL, event{
		Event:         "provision",
		Employee:      toEmployee(req.Employee),
		Integration:   toIntegration(req.Integration),
		ProvisionData: &data,
	}, &out); err != nil {
		return connector.ProvisionFailed(connector.AsError(c.provider, err), account.ProvisionedResources{})
	}

	res := connector.ProvisionResult{
		Success:          true,
		ExternalUserID:   out.ExternalUserID,
		ExternalEmail:    out.ExternalEmail,
		ExternalUsername: out.ExternalUsername,
		Resources: account.ProvisionedResources{
			OrgUnitPath:  data.OrgUnitPath,
			Groups:       data.Groups,
			Channels:     data.Channels,
			UserGroups:   data.UserGroups,
			Repositories: data.Repositories,
			ProjectRoles: data.ProjectRoles,
		},
		Note: out.Message,
	}
	if res.ExternalEmail == "" && req.Employee != nil {
		res.ExternalEmail = req.Employee.PreferredEmail()
	}
	return res
}

func (c *Connector) Deprovision(ctx context.Context, req connector.DeprovisionRequest) connector.DeprovisionResult {
	if c.settings.DeprovisionURL == "" {
		return connector.DeprovisionFailed(connector.NewError(c.provider, connector.CategoryConfiguration, "deprovisionUrl is not set"))
	}
	ev := event{
		Event:       "deprovision",
		Employee:    toEmployee(req.Employee),
		Integration: toIntegration(req.Integration),
		Options:     &req.Options,
	}
	if req.Account != nil {
		ev.Account = &accountPayload{
			ExternalUserID:   req.Account.ExternalUserID,
			ExternalEmail:    req.Account.ExternalEmail,
			ExternalUsername: req.Account.ExternalUsername,
		}
	}
	var out reply
	if err := c.post(ctx, c.settings.DeprovisionURL, ev, &out); err != nil {
		return connector.DeprovisionFailed(connector.AsError(c.provider, err))
	}
	return connector.DeprovisionResult{Success: true, Note: out.Message}
}

func (c *Connector) TestConnection(ctx context.Context) connector.TestResult {
	if c.settings.TestURL == "" {
		return connector.TestOK("no testUrl configured; endpoints not checked")
	}
	if err := c.post(ctx, c.settings.TestURL, event{Event: "test"}, nil); err != nil {
		return connector.TestFailed(connector.AsError(c.provider, err))
	}
	return connector.TestOK("webhook endpoint reachable")
}

func (c *Connector) post(ctx context.Context, url string, body event, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}
	headers := map[string]string{"X-Event": body.Event}
	if c.settings.Secret != "" {
		headers[SignatureHeader] = Sign(c.settings.Secret, encoded)
	}
	resp, err := c.client.Do(ctx, connector.Request{
		Method:  http.MethodPost,
		Path:    url,
		Body:    json.RawMessage(encoded),
		Headers: headers,
	})
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature produced by Sign.
func Verify(secret string, body []byte, signature string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}
