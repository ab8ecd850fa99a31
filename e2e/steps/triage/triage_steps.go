package triage

import (
	"context"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext is the subset of the scenario context the triage steps use.
type TestContext interface {
	GET(path string) error
	POST(path string, body any) error
	PUT(path string, body any) error
	DELETE(path string) error
}

// RegisterSteps registers questionnaire steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &triageSteps{tc: tc}

	ctx.Step(`^I open my triage session$`, steps.openSession)
	ctx.Step(`^I answer "([^"]*)" with "([^"]*)"$`, steps.answer)
	ctx.Step(`^I answer "([^"]*)" with options "([^"]*)"$`, steps.answerOptions)
	ctx.Step(`^I clear the answer to "([^"]*)"$`, steps.clearAnswer)
	ctx.Step(`^I advance$`, steps.advance)
	ctx.Step(`^I advance (\d+) times$`, steps.advanceTimes)
	ctx.Step(`^I go back$`, steps.retreat)
	ctx.Step(`^I reset my triage session$`, steps.reset)
	ctx.Step(`^I submit the triage$`, steps.submit)
	ctx.Step(`^I check my triage status$`, steps.status)
	ctx.Step(`^I fetch my triage record$`, steps.record)
	ctx.Step(`^I check the triage gate$`, steps.gate)
}

type triageSteps struct {
	tc TestContext
}

func (s *triageSteps) openSession(context.Context) error {
	return s.tc.GET("/triage/session")
}

func (s *triageSteps) answer(_ context.Context, questionID, value string) error {
	return s.tc.PUT("/triage/session/answers/"+questionID, map[string]any{"value": value})
}

func (s *triageSteps) answerOptions(_ context.Context, questionID, options string) error {
	values := []string{}
	for _, o := range strings.Split(options, ",") {
		if o = strings.TrimSpace(o); o != "" {
			values = append(values, o)
		}
	}
	return s.tc.PUT("/triage/session/answers/"+questionID, map[string]any{"value": values})
}

func (s *triageSteps) clearAnswer(_ context.Context, questionID string) error {
	return s.tc.DELETE("/triage/session/answers/" + questionID)
}

func (s *triageSteps) advance(context.Context) error {
	return s.tc.POST("/triage/session/advance", nil)
}

func (s *triageSteps) advanceTimes(ctx context.Context, n int) error {
	for range n {
		if err := s.advance(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *triageSteps) retreat(context.Context) error {
	return s.tc.POST("/triage/session/retreat", nil)
}

func (s *triageSteps) reset(context.Context) error {
	return s.tc.DELETE("/triage/session")
}

func (s *triageSteps) submit(context.Context) error {
	return s.tc.POST("/triage/submit", nil)
}

func (s *triageSteps) status(context.Context) error {
	return s.tc.GET("/triage/status")
}

func (s *triageSteps) record(context.Context) error {
	return s.tc.GET("/triage/record")
}

func (s *triageSteps) gate(context.Context) error {
	return s.tc.GET("/triage/gate")
}
