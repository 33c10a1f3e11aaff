// Package noop is the connector for integrations that have no API to call.
package noop

import (
	"context"
	"strings"

	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/connector"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
)

// Connector succeeds without side effects.
type Connector struct {
	provider integration.Provider
}

func New(provider integration.Provider) *Connector {
	return &Connector{provider: provider}
}

func (c *Connector) note() string {
	return "no connector for " + strings.ToLower(string(c.provider)) + "; access is tracked locally"
}

func (c *Connector) Provision(_ context.Context, req connector.ProvisionRequest) connector.ProvisionResult {
	res := connector.ProvisionResult{Success: true, Note: c.note()}
	if req.Employee != nil {
		res.ExternalEmail = req.Employee.PreferredEmail()
	}
	return res
}

func (c *Connector) Deprovision(context.Context, connector.DeprovisionRequest) connector.DeprovisionResult {
	return connector.DeprovisionResult{Success: true, Note: c.note()}
}

func (c *Connector) TestConnection(context.Context) connector.TestResult {
	return connector.TestOK(c.note())
}
