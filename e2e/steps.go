package e2e

import (
	"github.com/cucumber/godog"

	"pontes/e2e/steps/common"
	"pontes/e2e/steps/triage"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	triage.RegisterSteps(ctx, tc)
}
