package steps

import (
	"context"
	"net/url"
	"strings"

	"github.com/stretchr/testify/assert"

	"github.com/kuitang/authflow-e2e/internal/errs"
	"github.com/kuitang/authflow-e2e/internal/scenario"
)

// navPaths maps navigation link names to the path they lead to.
var navPaths = map[string]string{
	"home":      "/",
	"dashboard": "/dashboard",
	"profile":   "/profile",
	"login":     "/login",
	"register":  "/register",
}

func (s *Suite) registerNavigationSteps(sc stepRegistrar) {
	sc.Step(`^I click the "([^"]*)" link in the navigation bar$`, s.clickNavLink)
	sc.Step(`^I should be on the "([^"]*)" page$`, s.shouldBeOn)
	sc.Step(`^the navigation bar shows the brand$`, s.shouldSeeBrand)
}

func (s *Suite) clickNavLink(ctx context.Context, name string) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	var click func(context.Context) error
	switch strings.ToLower(name) {
	case "home":
		click = tc.Nav.GoHome
	case "dashboard":
		click = tc.Nav.GoDashboard
	case "profile":
		click = tc.Nav.GoProfile
	case "login":
		click = tc.Nav.GoLogin
		tc.SetCurrentPage(tc.Login)
	case "register":
		click = tc.Nav.GoRegister
		tc.SetCurrentPage(tc.Register)
	default:
		return errs.Newf(errs.InvalidArgument, "unknown navigation link %q", name)
	}
	if err := click(ctx); err != nil {
		return err
	}
	sleep(ctx, s.Config.SubmitSettle)
	return nil
}

func (s *Suite) shouldBeOn(ctx context.Context, name string) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	want, ok := navPaths[strings.ToLower(name)]
	if !ok {
		return errs.Newf(errs.InvalidArgument, "unknown page %q", name)
	}
	got := "/"
	if u, err := url.Parse(tc.Session.URL()); err == nil && u.Path != "" {
		got = u.Path
	}
	c := &checks{}
	assert.Equal(c, want, got, "unexpected page")
	return c.Err()
}

func (s *Suite) shouldSeeBrand(ctx context.Context) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	c := &checks{}
	assert.True(c, tc.Nav.IsBrandDisplayed(), "brand link should be visible")
	return c.Err()
}
