package common

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	POSTRaw(path, body string) error
	GET(path string) error
	GetResponseField(path string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	MintToken(subject string) (string, error)
	SetAccessToken(token string)
	Save(key, value string)
	Recall(key string) (string, bool)
}

// RegisterSteps registers common step definitions used across features
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	// Background steps
	ctx.Step(`^the VeriChain client is running$`, steps.clientIsRunning)
	ctx.Step(`^I am authenticated as operator "([^"]*)"$`, steps.authenticateAs)
	ctx.Step(`^I am not authenticated$`, steps.clearToken)

	// Generic request steps
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^I POST to "([^"]*)" with body:$`, steps.postWithBody)
	ctx.Step(`^I POST to "([^"]*)" with empty body$`, steps.postWithEmptyBody)

	// Response assertion steps
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the error kind should be "([^"]*)"$`, steps.errorKindShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.responseFieldShouldEqual)
	ctx.Step(`^the response field "([^"]*)" should be (true|false)$`, steps.responseFieldShouldBeBool)
	ctx.Step(`^the response field "([^"]*)" should contain "([^"]*)"$`, steps.responseFieldShouldContain)
	ctx.Step(`^I save the response field "([^"]*)" as "([^"]*)"$`, steps.saveResponseField)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) clientIsRunning(ctx context.Context) error {
	if err := s.tc.GET("/health/live"); err != nil {
		return err
	}
	return s.responseStatusShouldBe(ctx, 200)
}

func (s *commonSteps) authenticateAs(ctx context.Context, subject string) error {
	token, err := s.tc.MintToken(subject)
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}
	s.tc.SetAccessToken(token)
	return nil
}

func (s *commonSteps) clearToken(ctx context.Context) error {
	s.tc.SetAccessToken("")
	return nil
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(s.expand(path))
}

func (s *commonSteps) postWithBody(ctx context.Context, path string, body *godog.DocString) error {
	return s.tc.POSTRaw(s.expand(path), s.expand(body.Content))
}

func (s *commonSteps) postWithEmptyBody(ctx context.Context, path string) error {
	return s.tc.POST(s.expand(path), map[string]interface{}{})
}

func (s *commonSteps) responseStatusShouldBe(ctx context.Context, expectedStatus int) error {
	actualStatus := s.tc.GetLastResponseStatus()
	if actualStatus != expectedStatus {
		return fmt.Errorf("expected status %d but got %d\nResponse: %s", expectedStatus, actualStatus, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) errorKindShouldBe(ctx context.Context, kind string) error {
	return s.responseFieldShouldEqual(ctx, "kind", kind)
}

func (s *commonSteps) responseFieldShouldEqual(ctx context.Context, field, expectedValue string) error {
	actualValue, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	expectedValue = s.expand(expectedValue)
	if fmt.Sprint(actualValue) != expectedValue {
		return fmt.Errorf("field %s: expected %s but got %v", field, expectedValue, actualValue)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBeBool(ctx context.Context, field, expected string) error {
	actualValue, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	b, ok := actualValue.(bool)
	if !ok || fmt.Sprint(b) != expected {
		return fmt.Errorf("field %s: expected %s but got %v", field, expected, actualValue)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldContain(ctx context.Context, field, substring string) error {
	actualValue, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	str, ok := actualValue.(string)
	if !ok {
		return fmt.Errorf("field %s is not a string: %v", field, actualValue)
	}
	if !strings.Contains(str, s.expand(substring)) {
		return fmt.Errorf("field %s: expected to contain %q but got %q", field, substring, str)
	}
	return nil
}

func (s *commonSteps) saveResponseField(ctx context.Context, field, key string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	s.tc.Save(key, fmt.Sprint(v))
	return nil
}

var placeholder = regexp.MustCompile(`\{([a-z_]+)\}`)

// expand replaces {name} placeholders with saved values. Unknown names are
// left as they are.
func (s *commonSteps) expand(text string) string {
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		if v, ok := s.tc.Recall(m[1 : len(m)-1]); ok {
			return v
		}
		return m
	})
}
