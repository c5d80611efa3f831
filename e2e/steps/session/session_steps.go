package session

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string) error
	GetResponseField(path string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers session lifecycle step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &sessionSteps{tc: tc}

	ctx.Step(`^I connect the session$`, steps.connect)
	ctx.Step(`^I bind the registry "([^"]*)"$`, steps.bind)
	ctx.Step(`^I authorize the session$`, steps.authorize)
	ctx.Step(`^the session is ready on registry "([^"]*)"$`, steps.sessionReady)
	ctx.Step(`^the wallet switches to account "([^"]*)"$`, steps.switchAccount)
	ctx.Step(`^the session state should be "([^"]*)"$`, steps.stateShouldBe)
}

type sessionSteps struct {
	tc TestContext
}

func (s *sessionSteps) connect(ctx context.Context) error {
	return s.tc.POST("/session/connect", map[string]interface{}{})
}

func (s *sessionSteps) bind(ctx context.Context, registry string) error {
	return s.tc.POST("/session/bind", map[string]interface{}{"registry_address": registry})
}

func (s *sessionSteps) authorize(ctx context.Context) error {
	return s.tc.POST("/session/authorize", map[string]interface{}{})
}

func (s *sessionSteps) sessionReady(ctx context.Context, registry string) error {
	for _, step := range []func() error{
		func() error { return s.connect(ctx) },
		func() error { return s.bind(ctx, registry) },
		func() error { return s.authorize(ctx) },
	} {
		if err := step(); err != nil {
			return err
		}
		if status := s.tc.GetLastResponseStatus(); status != 200 {
			return fmt.Errorf("session setup failed with status %d: %s", status, string(s.tc.GetLastResponseBody()))
		}
	}
	return nil
}

func (s *sessionSteps) switchAccount(ctx context.Context, address string) error {
	if err := s.tc.POST("/agent/accounts/active", map[string]interface{}{"address": address}); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return fmt.Errorf("account switch failed with status %d: %s", status, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *sessionSteps) stateShouldBe(ctx context.Context, expected string) error {
	if err := s.tc.GET("/session"); err != nil {
		return err
	}
	state, err := s.tc.GetResponseField("state")
	if err != nil {
		return err
	}
	if state != expected {
		return fmt.Errorf("expected session state %s but got %v", expected, state)
	}
	return nil
}
