package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	UseAdminToken()
	ClearToken()
	POST(path string, body any) error
	GET(path string) error
	GetLastStatusCode() int
	GetResponseField(field string) (any, error)
	ResponseContains(field string) bool
	Remember(name, field string) error
	Expand(s string) string
}

// RegisterSteps registers authentication, request and assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I am an authenticated admin$`, steps.authenticatedAdmin)
	ctx.Step(`^I am not authenticated$`, steps.notAuthenticated)
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^I POST to "([^"]*)"$`, steps.post)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.fieldShouldEqual)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.shouldContain)
	ctx.Step(`^I remember "([^"]*)" as "([^"]*)"$`, steps.remember)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) authenticatedAdmin(ctx context.Context) error {
	s.tc.UseAdminToken()
	return nil
}

func (s *commonSteps) notAuthenticated(ctx context.Context) error {
	s.tc.ClearToken()
	return nil
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) post(ctx context.Context, path string) error {
	return s.tc.POST(path, nil)
}

func (s *commonSteps) statusShouldBe(ctx context.Context, code int) error {
	if got := s.tc.GetLastStatusCode(); got != code {
		return fmt.Errorf("expected status %d, got %d", code, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldEqual(ctx context.Context, field, want string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != s.tc.Expand(want) {
		return fmt.Errorf("expected %s to be %q, got %q", field, want, got)
	}
	return nil
}

func (s *commonSteps) shouldContain(ctx context.Context, field string) error {
	if !s.tc.ResponseContains(field) {
		return fmt.Errorf("response has no field %q", field)
	}
	return nil
}

func (s *commonSteps) remember(ctx context.Context, field, name string) error {
	return s.tc.Remember(name, field)
}
