package steps

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/authflow-e2e/internal/artifacts"
	"github.com/kuitang/authflow-e2e/internal/config"
	"github.com/kuitang/authflow-e2e/internal/element/elementtest"
	"github.com/kuitang/authflow-e2e/internal/errs"
	"github.com/kuitang/authflow-e2e/internal/fakedata"
	"github.com/kuitang/authflow-e2e/internal/pages"
	"github.com/kuitang/authflow-e2e/internal/pages/pagestest"
	"github.com/kuitang/authflow-e2e/internal/report"
	"github.com/kuitang/authflow-e2e/internal/scenario"
)

const fakeBaseURL = "http://app.test"

// fakeApp scripts a pagestest.Browser to behave like the auth app.
type fakeApp struct {
	*pagestest.Browser
	sel    pages.Selectors
	shots  int
	closed bool
	mu     sync.Mutex
}

func newFakeApp() *fakeApp {
	a := &fakeApp{Browser: pagestest.New(), sel: pages.DefaultSelectors()}
	s := a.sel
	a.OnGoto(func(string) {
		for _, sel := range []string{s.Username, s.Email, s.Password, s.LoginButton, s.RegisterButton, s.NavBrand, s.NavLogin, s.NavRegister} {
			a.Node(sel).SetVisible(true)
		}
	})
	a.Node(s.LoginButton).OnClick(a.submitLogin)
	a.Node(s.RegisterButton).OnClick(a.submitRegister)
	a.Node(s.Logout).OnClick(func() {
		a.Node(s.Logout).SetVisible(false)
		a.Node(s.Welcome).SetVisible(false)
		a.Node(s.NavLogin).SetVisible(true)
		a.SetURL(fakeBaseURL + "/login")
	})
	return a
}

// formErrorDelay is how long after a click the fake re-renders form errors.
const formErrorDelay = 30 * time.Millisecond

func (a *fakeApp) submitLogin() {
	s := a.sel
	username, password := a.Node(s.Username).Value(), a.Node(s.Password).Value()
	a.SetList(s.FormError)
	if username == "" || password == "" {
		var problems []*elementtest.Node
		if username == "" {
			problems = append(problems, elementtest.NewVisible("Username is required"))
		}
		if password == "" {
			problems = append(problems, elementtest.NewVisible("Password is required"))
		}
		time.AfterFunc(formErrorDelay, func() { a.SetList(s.FormError, problems...) })
		return
	}
	if username == "pending" {
		a.Node(s.Toast).Show("Check your inbox to continue", "toast toast-info")
		return
	}
	if username == "user" && password == "123456" {
		a.SetURL(fakeBaseURL + "/")
		a.Node(s.Toast).Show("Login successful", "toast toast-success")
		a.Node(s.Welcome).Show("Welcome, user", "")
		a.Node(s.Logout).SetVisible(true)
		a.Node(s.NavLogin).SetVisible(false)
		return
	}
	a.Node(s.Toast).Show("Invalid username or password", "toast toast-error")
}

func (a *fakeApp) submitRegister() {
	s := a.sel
	var problems []*elementtest.Node
	switch username := a.Node(s.Username).Value(); {
	case username == "":
		problems = append(problems, elementtest.NewVisible("Username is required"))
	case strings.Contains(username, " "):
		problems = append(problems, elementtest.NewVisible("Username must contain only letters and digits"))
	}
	if a.Node(s.Email).Value() == "" {
		problems = append(problems, elementtest.NewVisible("Email is required"))
	}
	if a.Node(s.Password).Value() == "" {
		problems = append(problems, elementtest.NewVisible("Password is required"))
	}
	a.SetList(s.FormError, problems...)
	switch {
	case len(problems) > 0:
	case a.Node(s.Username).Value() == "user":
		a.Node(s.Toast).Show("Username already exists", "toast toast-error")
	case a.Node(s.Email).Value() == "user@example.com":
		a.Node(s.Toast).Show("Email already exists", "toast toast-error")
	default:
		a.SetURL(fakeBaseURL + "/login")
		a.Node(s.Toast).Show("Registration successful! Please login.", "toast toast-success")
	}
}

func (a *fakeApp) Screenshot() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shots++
	return []byte("png"), nil
}

func (a *fakeApp) ClearCookies() error { return nil }

func (a *fakeApp) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

type fakeSessions struct {
	mu     sync.Mutex
	apps   []*fakeApp
	closed bool
}

func (f *fakeSessions) NewSession(string) (scenario.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := newFakeApp()
	f.apps = append(f.apps, a)
	return a, nil
}

func (f *fakeSessions) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.BaseURL = fakeBaseURL
	cfg.ActionTimeout = 150 * time.Millisecond
	cfg.ReadyStateTimeout = 20 * time.Millisecond
	cfg.ToastTimeout = 50 * time.Millisecond
	cfg.ToastSettle = time.Millisecond
	cfg.SubmitSettle = time.Millisecond
	return cfg
}

func newTestSuite(t *testing.T, sessions Sessions, launchErr error) (*Suite, string) {
	t.Helper()
	dir := t.TempDir()
	return &Suite{
		Config: testConfig(),
		Launch: func() (Sessions, error) {
			if launchErr != nil {
				return nil, launchErr
			}
			return sessions, nil
		},
		Artifacts: artifacts.NewDirStore(dir),
		Recorder:  report.NewRecorder(),
		Fake:      fakedata.New(7),
	}, dir
}

func runFeature(t *testing.T, s *Suite, feature string) (int, string) {
	t.Helper()
	var out bytes.Buffer
	code := s.Run(RunOptions{
		Features: []godog.Feature{{Name: "features/login.feature", Contents: []byte(feature)}},
		Format:   "progress",
		Output:   &out,
		Strict:   true,
	})
	return code, out.String()
}

const loginFeature = `Feature: Login

  Scenario: valid login
    Given I navigate to the login page
    When I enter "user" in the "username" field
    And I enter "123456" in the "password" field
    And I click the login button
    Then I should see a message "Login successful"
    And I should be redirected to the dashboard
    And I should see a welcome message with my username
    When I log out
    Then I should be logged out

  Scenario: wrong password
    Given I navigate to the login page
    When I enter "user" in the "username" field
    And I enter "nope" in the "password" field
    And I click the login button
    Then I should see a message "Invalid username or password"
    And I should see error messages containing "Invalid username or password"
`

func TestRun_LoginScenariosPass(t *testing.T) {
	sessions := &fakeSessions{}
	s, _ := newTestSuite(t, sessions, nil)

	code, out := runFeature(t, s, loginFeature)
	require.Equal(t, 0, code, out)

	sum := s.Recorder.Summary()
	assert.Equal(t, 2, sum.Passed)
	assert.True(t, sessions.closed, "browser closed after suite")
	for _, a := range sessions.apps {
		assert.True(t, a.closed, "session closed after scenario")
		assert.Zero(t, a.shots)
	}
}

func TestRun_FailedStepScreenshotAndReport(t *testing.T) {
	sessions := &fakeSessions{}
	s, dir := newTestSuite(t, sessions, nil)

	code, out := runFeature(t, s, `Feature: Login
  Scenario: expecting success with a bad password
    Given I navigate to the login page
    When I enter "user" in the "username" field
    And I enter "nope" in the "password" field
    And I click the login button
    Then I should see a message "Login successful"
`)
	require.Equal(t, 1, code, out)

	results := s.Recorder.Results()
	require.Len(t, results, 1)
	res := results[0]
	assert.Equal(t, report.StatusFailed, res.Status)
	assert.Equal(t, "login", res.Feature)
	assert.Equal(t, `I should see a message "Login successful"`, res.FailedStep)
	assert.Contains(t, res.Error, "Invalid username or password")
	require.Len(t, res.Screenshots, 2, "failed step plus end of scenario")
	for _, shot := range res.Screenshots {
		assert.True(t, strings.HasPrefix(shot, dir), shot)
		_, err := os.Stat(shot)
		assert.NoError(t, err)
	}
	assert.Equal(t, "expecting_success_with_a_bad_password", filepath.Base(filepath.Dir(res.Screenshots[0])))
}

func TestRun_RegistrationFlows(t *testing.T) {
	sessions := &fakeSessions{}
	s, _ := newTestSuite(t, sessions, nil)

	code, out := runFeature(t, s, `Feature: Register

  Scenario: new account
    Given I navigate to the register page
    When I register with random credentials
    Then I should see a registration successful message
    And I should be redirected to the login page

  Scenario: entered details
    Given I navigate to the register page
    When I enter a random username
    And I enter a random email
    And I enter a random password
    And I register with the entered details
    Then I should see a message "Registration successful"

  Scenario: duplicate username
    Given I navigate to the register page
    When I register with an existing username
    Then I should see error messages containing "Username already exists"

  Scenario: duplicate email
    Given I navigate to the register page
    When I register with an existing email
    Then I should see a message "Email already exists"

  Scenario: empty form
    Given I navigate to the register page
    When I click the register button
    Then I should see error messages containing "Username is required, Email is required, Password is required"
`)
	require.Equal(t, 0, code, out)
	assert.Equal(t, 5, s.Recorder.Summary().Passed)
}

func TestRun_EnteredDetailsMissingIsFailedPrecondition(t *testing.T) {
	sessions := &fakeSessions{}
	s, _ := newTestSuite(t, sessions, nil)

	code, out := runFeature(t, s, `Feature: Register
  Scenario: incomplete
    Given I navigate to the register page
    When I enter a random username
    And I register with the entered details
`)
	require.Equal(t, 1, code, out)
	res := s.Recorder.Results()[0]
	assert.Contains(t, res.Error, "email")
}

func TestRun_LaunchFailureFailsScenarios(t *testing.T) {
	s, _ := newTestSuite(t, nil, errs.New(errs.Unavailable, "no chromium"))

	code, out := runFeature(t, s, loginFeature)
	require.Equal(t, 1, code, out)
	sum := s.Recorder.Summary()
	assert.Equal(t, 2, sum.Failed)
	assert.Contains(t, s.Recorder.Results()[0].Error, "no chromium")
}

func TestRun_UndefinedStepIsPendingButFailsStrict(t *testing.T) {
	sessions := &fakeSessions{}
	s, _ := newTestSuite(t, sessions, nil)

	code, out := runFeature(t, s, `Feature: Login
  Scenario: unknown step
    Given I navigate to the login page
    Then the moon is made of cheese
`)
	assert.NotEqual(t, 0, code, out)
}

func TestChecks_Err(t *testing.T) {
	t.Parallel()
	c := &checks{}
	require.NoError(t, c.Err())

	c.Errorf("one")
	err := c.Err()
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.AssertionFailed))
	assert.Equal(t, "one", errs.MessageOf(err))

	c.Errorf("two")
	assert.Contains(t, c.Err().Error(), "checks failed")
}

func TestStatusOf(t *testing.T) {
	t.Parallel()
	assert.Equal(t, report.StatusPassed, statusOf(nil))
	assert.Equal(t, report.StatusPending, statusOf(godog.ErrPending))
	assert.Equal(t, report.StatusSkipped, statusOf(godog.ErrSkip))
	assert.Equal(t, report.StatusFailed, statusOf(errors.New("boom")))
}

func TestFeatureNameAndFormat(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "login", featureName("features/login.feature"))
	assert.Equal(t, "pretty,cucumber:out/cucumber.json", CucumberFormat("", "out/cucumber.json"))
	assert.Equal(t, "cucumber:x.json", CucumberFormat("cucumber:x.json", "out/cucumber.json"))
}

func TestRun_FormErrorsRenderedAfterClick(t *testing.T) {
	sessions := &fakeSessions{}
	s, _ := newTestSuite(t, sessions, nil)

	code, out := runFeature(t, s, `Feature: Login
  Scenario: empty login form
    Given I navigate to the login page
    When I click the login button
    Then I should see error messages containing "Username is required, Password is required"
`)
	require.Equal(t, 0, code, out)
	assert.Equal(t, 1, s.Recorder.Summary().Passed)
}

func TestRun_ErrorCountMustMatch(t *testing.T) {
	sessions := &fakeSessions{}
	s, _ := newTestSuite(t, sessions, nil)

	code, out := runFeature(t, s, `Feature: Register
  Scenario: one error shown, two expected
    Given I navigate to the register page
    When I enter "someone" in the "username" field
    And I enter "someone@example.com" in the "email" field
    And I click the register button
    Then I should see error messages containing "Password is required, Email is required"
`)
	require.Equal(t, 1, code, out)
	res := s.Recorder.Results()[0]
	assert.Equal(t, report.StatusFailed, res.Status)
	assert.Contains(t, res.Error, "number of error messages does not match")
}

func TestRun_ErrorCountSkippedForSentences(t *testing.T) {
	sessions := &fakeSessions{}
	s, _ := newTestSuite(t, sessions, nil)

	code, out := runFeature(t, s, `Feature: Register
  Scenario: three errors shown, one sentence expected
    Given I navigate to the register page
    When I enter "bad name" in the "username" field
    And I click the register button
    Then I should see error messages containing "only letters and digits"

  Scenario: three errors shown, one fragment expected
    Given I navigate to the register page
    When I enter "bad name" in the "username" field
    And I click the register button
    Then I should see error messages containing "Email is required"
`)
	require.Equal(t, 1, code, out)
	results := s.Recorder.Results()
	require.Len(t, results, 2)
	statuses := map[string]report.Status{}
	for _, r := range results {
		statuses[r.Name] = r.Status
	}
	assert.Equal(t, report.StatusPassed, statuses["three errors shown, one sentence expected"])
	assert.Equal(t, report.StatusFailed, statuses["three errors shown, one fragment expected"])
}

func TestRun_UnclassifiedToastMatchedByText(t *testing.T) {
	sessions := &fakeSessions{}
	s, _ := newTestSuite(t, sessions, nil)

	code, out := runFeature(t, s, `Feature: Login
  Scenario: neutral toast with the expected text
    Given I navigate to the login page
    When I enter "pending" in the "username" field
    And I enter "123456" in the "password" field
    And I click the login button
    Then I should see a message "Check your inbox"

  Scenario: neutral toast with other text
    Given I navigate to the login page
    When I enter "pending" in the "username" field
    And I enter "123456" in the "password" field
    And I click the login button
    Then I should see a message "Welcome back"
`)
	require.Equal(t, 1, code, out)
	statuses := map[string]report.Status{}
	for _, r := range s.Recorder.Results() {
		statuses[r.Name] = r.Status
	}
	assert.Equal(t, report.StatusPassed, statuses["neutral toast with the expected text"])
	assert.Equal(t, report.StatusFailed, statuses["neutral toast with other text"])
}

func TestRun_RandomFieldsGoToRegisterPage(t *testing.T) {
	sessions := &fakeSessions{}
	s, _ := newTestSuite(t, sessions, nil)

	code, out := runFeature(t, s, `Feature: Register
  Scenario: random details typed after opening the login page
    Given I navigate to the login page
    When I enter a random username
    And I enter a random email
    And I enter a random password
    And I register with the entered details
    Then I should see a registration successful message
`)
	require.Equal(t, 0, code, out)
	app := sessions.apps[0]
	assert.NotEmpty(t, app.Node(app.sel.Email).Value())
}
