package steps

import (
	"context"

	"github.com/stretchr/testify/assert"

	"github.com/kuitang/authflow-e2e/internal/obs"
	"github.com/kuitang/authflow-e2e/internal/scenario"
)

func (s *Suite) registerLoginSteps(sc stepRegistrar) {
	sc.Step(`^I login with valid credentials$`, s.loginWithValidCredentials)
	sc.Step(`^I am logged in$`, s.loggedIn)
	sc.Step(`^I should see a welcome message with my username$`, s.shouldSeeWelcome)
	sc.Step(`^I should be logged in$`, s.shouldBeLoggedIn)
	sc.Step(`^I log out$`, s.logOut)
	sc.Step(`^I should be logged out$`, s.shouldBeLoggedOut)
}

func (s *Suite) loginWithValidCredentials(ctx context.Context) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	currentOr(tc, tc.Login)
	ok, err := tc.Login.Login(ctx, s.Config.ValidUsername, s.Config.ValidPassword)
	if err != nil {
		return err
	}
	if !ok {
		obs.From(ctx).Warn("login_toast_missing", "username", s.Config.ValidUsername)
	}
	if !tc.Values.Contains("username") {
		tc.Values.Set("username", s.Config.ValidUsername)
	}
	return nil
}

// loggedIn is the Background shortcut: open the login page and sign in.
func (s *Suite) loggedIn(ctx context.Context) error {
	if err := s.navigateTo(ctx, "login"); err != nil {
		return err
	}
	if err := s.loginWithValidCredentials(ctx); err != nil {
		return err
	}
	return s.shouldBeLoggedIn(ctx)
}

func (s *Suite) shouldSeeWelcome(ctx context.Context) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	username := tc.Values.String("username")
	if username == "" {
		username = s.Config.ValidUsername
	}
	c := &checks{}
	welcome, err := tc.Nav.WelcomeMessage()
	if assert.NoError(c, err, "welcome message not shown") {
		assert.Contains(c, welcome, username, "welcome message should contain the username")
	}
	return c.Err()
}

func (s *Suite) shouldBeLoggedIn(ctx context.Context) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	c := &checks{}
	assert.True(c, tc.Nav.IsLoggedIn(), "user should be logged in")
	return c.Err()
}

func (s *Suite) logOut(ctx context.Context) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	if err := tc.Nav.Logout(ctx); err != nil {
		return err
	}
	tc.SetCurrentPage(tc.Login)
	sleep(ctx, s.Config.SubmitSettle)
	return nil
}

func (s *Suite) shouldBeLoggedOut(ctx context.Context) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	c := &checks{}
	assert.False(c, tc.Nav.IsLoggedIn(), "user should be logged out")
	assert.True(c, tc.Nav.IsLoggedOut(), "login link should be shown")
	return c.Err()
}
