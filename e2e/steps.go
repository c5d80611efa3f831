package e2e

import (
	"github.com/cucumber/godog"

	"verichain/e2e/steps/common"
	"verichain/e2e/steps/credential"
	"verichain/e2e/steps/session"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	session.RegisterSteps(ctx, tc)
	credential.RegisterSteps(ctx, tc)
}
