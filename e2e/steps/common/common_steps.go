package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext is the subset of the scenario context the common steps use.
type TestContext interface {
	AuthenticateAs(userID string) error
	ClearAuth()
	GET(path string) error
	StatusCode() int
	ResponseField(path string) (any, error)
}

// RegisterSteps registers authentication and response assertion steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the triage service is running$`, steps.serviceIsRunning)
	ctx.Step(`^I am authenticated as a new user$`, steps.authenticateAsNewUser)
	ctx.Step(`^I am not authenticated$`, steps.notAuthenticated)
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.responseFieldShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be (true|false)$`, steps.responseFieldShouldBeBool)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serviceIsRunning(context.Context) error {
	if err := s.tc.GET("/health"); err != nil {
		return err
	}
	if s.tc.StatusCode() != 200 {
		return fmt.Errorf("health check returned %d", s.tc.StatusCode())
	}
	return nil
}

// authenticateAsNewUser uses the scenario id so reruns never share records.
func (s *commonSteps) authenticateAsNewUser(ctx context.Context) error {
	sc, ok := ctx.Value(scenarioKey{}).(string)
	if !ok || sc == "" {
		return fmt.Errorf("scenario id missing from context")
	}
	return s.tc.AuthenticateAs("e2e-" + sc)
}

func (s *commonSteps) notAuthenticated(context.Context) error {
	s.tc.ClearAuth()
	return nil
}

func (s *commonSteps) responseStatusShouldBe(_ context.Context, status int) error {
	if s.tc.StatusCode() != status {
		return fmt.Errorf("expected status %d, got %d", status, s.tc.StatusCode())
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBe(_ context.Context, field, expected string) error {
	value, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(value) != expected {
		return fmt.Errorf("expected %s to be %q, got %v", field, expected, value)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBeBool(_ context.Context, field, expected string) error {
	value, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	b, ok := value.(bool)
	if !ok || fmt.Sprint(b) != expected {
		return fmt.Errorf("expected %s to be %s, got %v", field, expected, value)
	}
	return nil
}

type scenarioKey struct{}

// WithScenario stores the scenario id for steps that need a unique user.
func WithScenario(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, scenarioKey{}, id)
}
