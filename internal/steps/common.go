package steps

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kuitang/authflow-e2e/internal/errs"
	"github.com/kuitang/authflow-e2e/internal/fakedata"
	"github.com/kuitang/authflow-e2e/internal/logutil"
	"github.com/kuitang/authflow-e2e/internal/obs"
	"github.com/kuitang/authflow-e2e/internal/pages"
	"github.com/kuitang/authflow-e2e/internal/scenario"
)

var errorSplit = regexp.MustCompile(`,\s*`)

func (s *Suite) registerCommonSteps(sc stepRegistrar) {
	sc.Step(`^I navigate to the (login|register) page$`, s.navigateTo)
	sc.Step(`^I enter "([^"]*)" in the "([^"]*)" field$`, s.enterText)
	sc.Step(`^I enter a stamped random (username|password)$`, s.enterStamped)
	sc.Step(`^I click the (login|register) button$`, s.clickButton)
	sc.Step(`^I should be redirected to the (dashboard|login page)$`, s.shouldBeRedirected)
	sc.Step(`^I should see a message "([^"]*)"$`, s.shouldSeeMessage)
	sc.Step(`^I should see error messages containing "([^"]*)"$`, s.shouldSeeErrors)
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (s *Suite) navigateTo(ctx context.Context, name string) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	var p pages.Page = tc.Login
	if name == "register" {
		p = tc.Register
	}
	if err := p.Navigate(ctx); err != nil {
		return err
	}
	tc.SetCurrentPage(p)
	return nil
}

func (s *Suite) enterText(ctx context.Context, text, field string) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	p, err := tc.CurrentPage()
	if err != nil {
		return err
	}
	if err := p.EnterText(ctx, field, text); err != nil {
		return err
	}
	tc.Values.Set(strings.ToLower(strings.TrimSpace(field)), text)
	return nil
}

func (s *Suite) enterStamped(ctx context.Context, field string) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	p, err := tc.CurrentPage()
	if err != nil {
		return err
	}
	value := fakedata.StampedUsername(s.now())
	if field == "password" {
		value = fakedata.StampedPassword(s.now())
	}
	obs.From(ctx).Info("stamped_value", "field", field, "value", logutil.MaskValue(field, value))
	if err := p.EnterText(ctx, field, value); err != nil {
		return err
	}
	tc.Values.Set(field, value)
	return nil
}

func (s *Suite) clickButton(ctx context.Context, which string) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	p, err := tc.CurrentPage()
	if err != nil {
		return err
	}
	button := "sign in"
	if which == "register" {
		button = "register"
	}
	return p.ClickButton(ctx, button)
}

func (s *Suite) shouldBeRedirected(ctx context.Context, target string) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	c := &checks{}
	if target == "dashboard" {
		assert.Equal(c, s.Config.URL("/"), tc.Session.URL(), "expected to be redirected to the dashboard")
		assert.True(c, tc.Nav.IsLoggedIn(), "expected to be logged in")
		return c.Err()
	}
	assert.Equal(c, s.Config.URL("/login"), tc.Session.URL(), "expected to be redirected to the login page")
	return c.Err()
}

// shouldSeeMessage checks the page shows expected. The kind is inferred from
// the text; when the page does not classify its feedback that way the raw
// message still has to contain expected.
func (s *Suite) shouldSeeMessage(ctx context.Context, expected string) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	p, err := tc.CurrentPage()
	if err != nil {
		return err
	}
	sleep(ctx, s.Config.ToastSettle)

	kind := pages.MessageError
	if strings.Contains(strings.ToLower(expected), "success") {
		kind = pages.MessageSuccess
	}
	c := &checks{}
	if !p.IsMessageDisplayed(kind) {
		obs.From(ctx).Warn("message_kind_not_displayed", "kind", string(kind))
		if actual := p.Message(); actual != "" {
			assert.Contains(c, actual, expected, "unexpected message")
			return c.Err()
		}
		assert.Fail(c, "expected a "+string(kind)+" message to be displayed")
		return c.Err()
	}
	assert.Contains(c, p.Message(), expected, "unexpected message")
	return c.Err()
}

// shouldSeeErrors matches a comma separated list of expected fragments
// against form errors, or against the toast when the form has none. The
// count must match unless the expectation reads as a sentence ("and").
func (s *Suite) shouldSeeErrors(ctx context.Context, expectedList string) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	p, err := tc.CurrentPage()
	if err != nil {
		return err
	}

	actual := p.WaitForErrorMessages(ctx)
	c := &checks{}
	if len(actual) == 0 {
		sleep(ctx, s.Config.ToastSettle)
		if !assert.True(c, p.IsMessageDisplayed(pages.MessageError), "expected error messages to be displayed") {
			return c.Err()
		}
		actual = []string{p.Message()}
	}

	expected := errorSplit.Split(expectedList, -1)
	obs.From(ctx).Debug("error_messages", "expected", expected, "actual", actual)
	if !strings.Contains(expectedList, "and") {
		assert.Len(c, actual, len(expected), "number of error messages does not match")
	}
	for _, want := range expected {
		want = strings.TrimSpace(want)
		if !containsFragment(actual, want) {
			assert.Fail(c, "missing error message", "expected an error containing %q in %q", want, actual)
		}
	}
	return c.Err()
}

func containsFragment(messages []string, fragment string) bool {
	for _, m := range messages {
		if strings.Contains(m, fragment) {
			return true
		}
	}
	return false
}

// currentOr returns the current page, or p when none was opened yet.
func currentOr(tc *scenario.TestContext, p pages.Page) pages.Page {
	if cur, err := tc.CurrentPage(); err == nil {
		return cur
	}
	tc.SetCurrentPage(p)
	return p
}

func missing(what string) error {
	return errs.New(errs.FailedPrecondition, what)
}
