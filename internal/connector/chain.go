package connector

import (
	"context"
)

// Chain tries a primary connector and falls back to a secondary one when the
// primary is not configured or cannot perform the operation.
type Chain struct {
	primary  Connector
	fallback Connector
}

// NewChain returns primary alone when fallback is nil, and fallback alone
// when primary is nil.
func NewChain(primary, fallback Connector) Connector {
	switch {
	case primary == nil:
		return fallback
	case fallback == nil:
		return primary
	}
	return &Chain{primary: primary, fallback: fallback}
}

func shouldFallBack(err *Error) bool {
	return err != nil && (err.Category == CategoryConfiguration || err.Category == CategoryUnsupported)
}

func (c *Chain) Provision(ctx context.Context, req ProvisionRequest) ProvisionResult {
	res := c.primary.Provision(ctx, req)
	if !shouldFallBack(res.Err) {
		return res
	}
	return c.fallback.Provision(ctx, req)
}

func (c *Chain) Deprovision(ctx context.Context, req DeprovisionRequest) DeprovisionResult {
	res := c.primary.Deprovision(ctx, req)
	if !shouldFallBack(res.Err) {
		return res
	}
	return c.fallback.Deprovision(ctx, req)
}

func (c *Chain) TestConnection(ctx context.Context) TestResult {
	res := c.primary.TestConnection(ctx)
	if !shouldFallBack(res.Err) {
		return res
	}
	return c.fallback.TestConnection(ctx)
}
