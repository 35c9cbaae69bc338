// Package browser runs the page objects and the Gherkin suite in a real
// browser against the reference app.
//
// Prerequisites:
// - Install Playwright browsers: go run ./cmd/e2e install
// - Run tests with: go test -v ./tests/browser/...
//
// Tests skip when playwright or Chromium is unavailable.
package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kuitang/authflow-e2e/internal/auth"
	"github.com/kuitang/authflow-e2e/internal/browser"
	"github.com/kuitang/authflow-e2e/internal/config"
	"github.com/kuitang/authflow-e2e/internal/email"
	"github.com/kuitang/authflow-e2e/internal/pages"
	"github.com/kuitang/authflow-e2e/internal/ratelimit"
	"github.com/kuitang/authflow-e2e/internal/web"
)

const (
	// Never introduce a larger timeout value anywhere in tests/browser.
	browserMaxTimeout = 5 * time.Second
)

var (
	driverOnce sync.Once
	driver     *browser.Driver
	driverErr  error
)

// BrowserTestEnv is a reference app served by httptest plus the suite
// configuration pointing at it.
type BrowserTestEnv struct {
	Server *httptest.Server
	App    *web.App
	Email  *email.MockEmailService
	Config *config.Config
}

// SetupBrowserTestEnv starts a fresh reference app with the demo account.
func SetupBrowserTestEnv(t *testing.T) *BrowserTestEnv {
	t.Helper()

	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	mail := email.NewMockEmailService()
	app, err := web.NewApp(context.Background(), &config.AppConfig{
		BaseURL:         server.URL,
		SeedDemoAccount: true,
		SessionDuration: time.Hour,
		RateLimitConfig: ratelimit.DefaultConfig,
		NoEmail:         true,
	}, mail, auth.FakeInsecureHasher{})
	if err != nil {
		t.Fatalf("Failed to start reference app: %v", err)
	}
	t.Cleanup(func() { app.Close() })
	server.Config.Handler = app.Handler()

	cfg := config.Default()
	cfg.BaseURL = server.URL
	cfg.Headless = true
	cfg.ActionTimeout = 3 * time.Second
	cfg.PageLoadTimeout = browserMaxTimeout
	cfg.ArtifactsDir = t.TempDir()

	return &BrowserTestEnv{Server: server, App: app, Email: mail, Config: cfg}
}

// InitBrowser launches the shared headless Chromium. Skips the test if not
// available.
func InitBrowser(t *testing.T) *browser.Driver {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	driverOnce.Do(func() {
		driver, driverErr = browser.Launch(browser.Options{
			Kind:            config.BrowserChromium,
			Headless:        true,
			ActionTimeout:   3 * time.Second,
			PageLoadTimeout: browserMaxTimeout,
		})
	})
	if driverErr != nil {
		t.Skip("Playwright not available:", driverErr)
	}
	return driver
}

// NewSession opens an isolated browser context for one test.
func (env *BrowserTestEnv) NewSession(t *testing.T) *browser.Session {
	t.Helper()
	d := InitBrowser(t)
	s, err := d.NewSession(browser.WithScenarioID(t.Name()))
	if err != nil {
		t.Fatalf("could not create browser session: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// PageOptions are the page object options for env.
func (env *BrowserTestEnv) PageOptions() pages.Options {
	return pages.OptionsFromConfig(env.Config)
}

func closeDriver() {
	if driver != nil {
		driver.Close()
		driver = nil
	}
}
