package e2e

import (
	"github.com/cucumber/godog"

	"github.com/CuracelDev/curacel-peoplev2-sub001/e2e/steps/common"
	"github.com/CuracelDev/curacel-peoplev2-sub001/e2e/steps/offboarding"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (authentication, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register offboarding workflow steps
	offboarding.RegisterSteps(ctx, tc)
}
