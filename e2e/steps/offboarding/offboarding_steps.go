package offboarding

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	GetLastStatusCode() int
	GetResponseField(field string) (any, error)
	Remember(name, field string) error
}

// RegisterSteps registers offboarding workflow step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &offboardingSteps{tc: tc}

	ctx.Step(`^I start an immediate offboarding for employee "([^"]*)" because "([^"]*)"$`, steps.startImmediate)
	ctx.Step(`^I schedule an offboarding for employee "([^"]*)" at "([^"]*)"$`, steps.schedule)
	ctx.Step(`^I complete task "([^"]*)" with notes "([^"]*)"$`, steps.completeTask)
	ctx.Step(`^I skip task "([^"]*)" because "([^"]*)"$`, steps.skipTask)
	ctx.Step(`^I cancel workflow "([^"]*)"$`, steps.cancel)
	ctx.Step(`^I fetch workflow "([^"]*)"$`, steps.fetch)
	ctx.Step(`^every task should have status "([^"]*)"$`, steps.everyTaskShouldHaveStatus)
}

type offboardingSteps struct {
	tc TestContext
}

func (s *offboardingSteps) startImmediate(ctx context.Context, employeeID, reason string) error {
	return s.tc.POST("/admin/employees/"+employeeID+"/offboarding", map[string]any{
		"immediate": true,
		"reason":    reason,
	})
}

func (s *offboardingSteps) schedule(ctx context.Context, employeeID, at string) error {
	return s.tc.POST("/admin/employees/"+employeeID+"/offboarding", map[string]any{
		"scheduledFor": at,
	})
}

func (s *offboardingSteps) completeTask(ctx context.Context, taskID, notes string) error {
	return s.tc.POST("/admin/offboarding/tasks/"+taskID+"/complete", map[string]string{"notes": notes})
}

func (s *offboardingSteps) skipTask(ctx context.Context, taskID, reason string) error {
	return s.tc.POST("/admin/offboarding/tasks/"+taskID+"/skip", map[string]string{"reason": reason})
}

func (s *offboardingSteps) cancel(ctx context.Context, workflowID string) error {
	return s.tc.POST("/admin/offboarding/"+workflowID+"/cancel", nil)
}

func (s *offboardingSteps) fetch(ctx context.Context, workflowID string) error {
	return s.tc.GET("/admin/offboarding/" + workflowID)
}

func (s *offboardingSteps) everyTaskShouldHaveStatus(ctx context.Context, status string) error {
	raw, err := s.tc.GetResponseField("tasks")
	if err != nil {
		return err
	}
	tasks, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("tasks is not a list")
	}
	for i, t := range tasks {
		task, _ := t.(map[string]any)
		if got := fmt.Sprint(task["status"]); got != status {
			return fmt.Errorf("task %d has status %q, want %q", i, got, status)
		}
	}
	return nil
}
