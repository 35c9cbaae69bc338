package steps

import (
	"context"

	"github.com/stretchr/testify/assert"

	"github.com/kuitang/authflow-e2e/internal/logutil"
	"github.com/kuitang/authflow-e2e/internal/obs"
	"github.com/kuitang/authflow-e2e/internal/pages"
	"github.com/kuitang/authflow-e2e/internal/scenario"
)

// Random passwords follow the app's length rules with room to spare.
const (
	randomPasswordMin = 8
	randomPasswordMax = 20
)

// RegistrationSuccessText is the full toast text after signing up.
const RegistrationSuccessText = "Registration successful! Please login."

func (s *Suite) registerRegisterSteps(sc stepRegistrar) {
	sc.Step(`^I register with random credentials$`, s.registerRandom)
	sc.Step(`^I register with an existing username$`, s.registerExistingUsername)
	sc.Step(`^I register with an existing email$`, s.registerExistingEmail)
	sc.Step(`^I register with the entered details$`, s.registerEntered)
	sc.Step(`^I enter a random (username|email|password)$`, s.enterRandom)
	sc.Step(`^I should see a registration successful message$`, s.shouldSeeRegistrationSuccess)
	sc.Step(`^I sign in with the registered credentials$`, s.signInRegistered)
}

func (s *Suite) register(ctx context.Context, tc *scenario.TestContext, username, email, password string) error {
	currentOr(tc, tc.Register)
	obs.From(ctx).Info("register",
		"username", username,
		"email", email,
		"password", logutil.MaskValue("password", password),
	)
	ok, err := tc.Register.Register(ctx, username, email, password)
	if err != nil {
		return err
	}
	obs.From(ctx).Debug("register_result", "success_toast", ok)
	return nil
}

func (s *Suite) registerRandom(ctx context.Context) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	username, email := s.Fake.Username(), s.Fake.Email()
	password := s.Fake.Password(randomPasswordMin, randomPasswordMax)
	tc.Values.Set("username", username)
	tc.Values.Set("email", email)
	tc.Values.Set("password", password)
	return s.register(ctx, tc, username, email, password)
}

func (s *Suite) registerExistingUsername(ctx context.Context) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	return s.register(ctx, tc, s.Config.ValidUsername, s.Fake.Email(), s.Fake.Password(randomPasswordMin, randomPasswordMax))
}

func (s *Suite) registerExistingEmail(ctx context.Context) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	return s.register(ctx, tc, s.Fake.Username(), s.Config.ExistingEmail, s.Fake.Password(randomPasswordMin, randomPasswordMax))
}

func (s *Suite) registerEntered(ctx context.Context) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	values, err := scenario.RequireStrings(tc.Values, "username", "email", "password")
	if err != nil {
		return missing("registration details incomplete, enter username, email and password first: " + err.Error())
	}
	return s.register(ctx, tc, values[0], values[1], values[2])
}

func (s *Suite) enterRandom(ctx context.Context, field string) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	var value string
	switch field {
	case "username":
		value = s.Fake.Username()
	case "email":
		value = s.Fake.Email()
	default:
		value = s.Fake.Password(randomPasswordMin, randomPasswordMax)
	}
	tc.SetCurrentPage(tc.Register)
	if err := tc.Register.EnterText(ctx, field, value); err != nil {
		return err
	}
	tc.Values.Set(field, value)
	return nil
}

func (s *Suite) shouldSeeRegistrationSuccess(ctx context.Context) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	sleep(ctx, s.Config.ToastSettle)
	c := &checks{}
	if assert.True(c, tc.Register.IsMessageDisplayed(pages.MessageSuccess), "expected registration success message") {
		assert.Contains(c, tc.Register.Message(), RegistrationSuccessText, "unexpected registration message")
	}
	return c.Err()
}

// signInRegistered logs in on the current login page with the account the
// scenario registered earlier.
func (s *Suite) signInRegistered(ctx context.Context) error {
	tc, err := scenario.From(ctx)
	if err != nil {
		return err
	}
	values, err := scenario.RequireStrings(tc.Values, "username", "password")
	if err != nil {
		return missing("no registered account in this scenario: " + err.Error())
	}
	tc.SetCurrentPage(tc.Login)
	ok, err := tc.Login.Login(ctx, values[0], values[1])
	if err != nil {
		return err
	}
	obs.From(ctx).Info("registered_login", "username", values[0], "success", ok)
	return nil
}
