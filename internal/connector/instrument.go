package connector

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	employee "github.com/CuracelDev/curacel-peoplev2-sub001/internal/employee/models"
	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
	"github.com/CuracelDev/curacel-peoplev2-sub001/internal/platform/tracing"
)

// Instrumented wraps a connector with a span per operation and turns panics
// into transient failures.
type Instrumented struct {
	inner       Connector
	integration *integration.Integration
	logger      *slog.Logger
}

func Instrument(inner Connector, in *integration.Integration, logger *slog.Logger) *Instrumented {
	if logger == nil {
		logger = slog.Default()
	}
	return &Instrumented{inner: inner, integration: in, logger: logger}
}

// Unwrap returns the wrapped connector.
func (c *Instrumented) Unwrap() Connector { return c.inner }

func (c *Instrumented) Provision(ctx context.Context, req ProvisionRequest) (res ProvisionResult) {
	ctx, end := c.start(ctx, "provision", employeeAttr(req.Employee)...)
	defer func() {
		if r := recover(); r != nil {
			res = ProvisionResult{Err: c.panicked("provision", r)}
		}
		end(res.Success && res.Err == nil, res.Err)
	}()
	return c.inner.Provision(ctx, req)
}

func (c *Instrumented) Deprovision(ctx context.Context, req DeprovisionRequest) (res DeprovisionResult) {
	ctx, end := c.start(ctx, "deprovision", employeeAttr(req.Employee)...)
	defer func() {
		if r := recover(); r != nil {
			res = DeprovisionResult{Err: c.panicked("deprovision", r)}
		}
		end(res.Success && res.Err == nil, res.Err)
	}()
	return c.inner.Deprovision(ctx, req)
}

func (c *Instrumented) TestConnection(ctx context.Context) (res TestResult) {
	ctx, end := c.start(ctx, "test")
	defer func() {
		if r := recover(); r != nil {
			e := c.panicked("test", r)
			res = TestFailed(e)
		}
		end(res.Success, res.Err)
	}()
	return c.inner.TestConnection(ctx)
}

func employeeAttr(emp *employee.Employee) []attribute.KeyValue {
	if emp == nil {
		return nil
	}
	return []attribute.KeyValue{tracing.AttrEmployeeID.String(emp.ID.String())}
}

func (c *Instrumented) start(ctx context.Context, op string, extra ...attribute.KeyValue) (context.Context, func(ok bool, err *Error)) {
	attrs := append([]attribute.KeyValue{
		tracing.AttrProvider.String(string(c.integration.Provider)),
		tracing.AttrIntegrationID.String(c.integration.ID.String()),
		tracing.AttrOperation.String(op),
	}, extra...)
	ctx, span := tracing.StartSpan(ctx, "connector."+op, attrs...)
	return ctx, func(ok bool, err *Error) {
		if err != nil {
			span.SetAttributes(attribute.String("connector.error_category", string(err.Category)))
			tracing.EndSpan(span, ok, err)
			return
		}
		tracing.EndSpan(span, ok, nil)
	}
}

func (c *Instrumented) panicked(op string, r any) *Error {
	c.logger.Error("connector panicked",
		"provider", c.integration.Provider,
		"integration_id", c.integration.ID,
		"operation", op,
		"panic", fmt.Sprint(r),
	)
	return Errorf(c.integration.Provider, CategoryTransient, "internal connector failure during %s", op)
}
