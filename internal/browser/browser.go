// Package browser starts playwright browsers and hands out one isolated
// session per scenario.
package browser

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/authflow-e2e/internal/config"
	"github.com/kuitang/authflow-e2e/internal/errs"
	"github.com/kuitang/authflow-e2e/internal/obs"
)

var logger = obs.Pkg("browser")

// Headless sessions render at a fixed full-HD viewport.
const (
	headlessWidth  = 1920
	headlessHeight = 1080
)

// chromiumArgs keep Chromium stable in containers and CI.
var chromiumArgs = []string{
	"--disable-dev-shm-usage",
	"--no-sandbox",
	"--disable-extensions",
	"--disable-infobars",
	"--disable-gpu",
}

type Options struct {
	Kind            string
	Headless        bool
	SlowMo          time.Duration
	ActionTimeout   time.Duration
	PageLoadTimeout time.Duration
	Install         bool
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Kind:            cfg.Browser,
		Headless:        cfg.Headless,
		SlowMo:          cfg.SlowMo,
		ActionTimeout:   cfg.ActionTimeout,
		PageLoadTimeout: cfg.PageLoadTimeout,
		Install:         cfg.InstallBrowsers,
	}
}

// launchOptions builds the playwright launch options for opts.
func launchOptions(opts Options) playwright.BrowserTypeLaunchOptions {
	lo := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	if opts.SlowMo > 0 {
		lo.SlowMo = playwright.Float(float64(opts.SlowMo.Milliseconds()))
	}
	if config.NormalizeBrowser(opts.Kind) == config.BrowserChromium {
		lo.Args = append([]string(nil), chromiumArgs...)
		if !opts.Headless {
			lo.Args = append(lo.Args, "--start-maximized")
		}
	}
	return lo
}

// contextOptions sizes the viewport: fixed when headless, the window itself
// when headed.
func contextOptions(opts Options) playwright.BrowserNewContextOptions {
	co := playwright.BrowserNewContextOptions{}
	if opts.Headless {
		co.Viewport = &playwright.Size{Width: headlessWidth, Height: headlessHeight}
	} else {
		co.NoViewport = playwright.Bool(true)
	}
	return co
}

func browserType(pw *playwright.Playwright, kind string) (playwright.BrowserType, error) {
	switch config.NormalizeBrowser(kind) {
	case config.BrowserChromium:
		return pw.Chromium, nil
	case config.BrowserFirefox:
		return pw.Firefox, nil
	case config.BrowserWebKit:
		return pw.WebKit, nil
	}
	return nil, errs.Newf(errs.InvalidArgument, "unsupported browser %q", kind)
}

// Install downloads the playwright driver and the browser for kind.
func Install(kind string) error {
	name := config.NormalizeBrowser(kind)
	logger.Info("browser_install", "browser", name)
	if err := playwright.Install(&playwright.RunOptions{Browsers: []string{name}}); err != nil {
		return unavailable("install playwright "+name, err)
	}
	return nil
}

// Driver owns the playwright process and one browser.
type Driver struct {
	opts    Options
	pw      *playwright.Playwright
	browser playwright.Browser

	mu       sync.Mutex
	sessions int
}

// Launch starts playwright and the configured browser. Failures are
// errs.Unavailable so callers can tell them from test failures.
func Launch(opts Options) (*Driver, error) {
	if opts.Install {
		if err := Install(opts.Kind); err != nil {
			return nil, err
		}
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, unavailable("start playwright", err)
	}
	bt, err := browserType(pw, opts.Kind)
	if err != nil {
		_ = pw.Stop()
		return nil, err
	}
	b, err := bt.Launch(launchOptions(opts))
	if err != nil {
		_ = pw.Stop()
		return nil, unavailable("launch "+config.NormalizeBrowser(opts.Kind), err)
	}
	logger.Info("browser_launched",
		"browser", config.NormalizeBrowser(opts.Kind),
		"version", b.Version(),
		"headless", opts.Headless,
	)
	return &Driver{opts: opts, pw: pw, browser: b}, nil
}

// SessionOption customises a new session.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	headers map[string]string
}

// WithHeader sends an extra HTTP header on every request of the session.
func WithHeader(name, value string) SessionOption {
	return func(c *sessionConfig) {
		if c.headers == nil {
			c.headers = map[string]string{}
		}
		c.headers[name] = value
	}
}

// WithScenarioID tags every request with the scenario's correlation ID.
func WithScenarioID(id string) SessionOption {
	return WithHeader(obs.ScenarioHeader, id)
}

// NewSession opens a fresh browser context and page, isolated from every
// other session's cookies and storage.
func (d *Driver) NewSession(opts ...SessionOption) (*Session, error) {
	var sc sessionConfig
	for _, o := range opts {
		o(&sc)
	}
	bctx, err := d.browser.NewContext(contextOptions(d.opts))
	if err != nil {
		return nil, unavailable("new browser context", err)
	}
	if len(sc.headers) > 0 {
		if err := bctx.SetExtraHTTPHeaders(sc.headers); err != nil {
			_ = bctx.Close()
			return nil, fmt.Errorf("set session headers: %w", err)
		}
	}
	bctx.SetDefaultTimeout(float64(d.opts.ActionTimeout.Milliseconds()))
	bctx.SetDefaultNavigationTimeout(float64(d.opts.PageLoadTimeout.Milliseconds()))

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, unavailable("new page", err)
	}
	d.mu.Lock()
	d.sessions++
	d.mu.Unlock()
	return &Session{ctx: bctx, page: page, loadTimeout: d.opts.PageLoadTimeout}, nil
}

// Close shuts the browser and the playwright driver down.
func (d *Driver) Close() error {
	if d == nil {
		return nil
	}
	var problems []string
	if err := d.browser.Close(); err != nil {
		problems = append(problems, "close browser: "+err.Error())
	}
	if err := d.pw.Stop(); err != nil {
		problems = append(problems, "stop playwright: "+err.Error())
	}
	d.mu.Lock()
	n := d.sessions
	d.mu.Unlock()
	logger.Info("browser_closed", "sessions", n)
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// unavailable marks err as an environment problem, keeping its text.
func unavailable(op string, err error) error {
	return errs.Wrap(errs.Unavailable, op+": "+err.Error(), err)
}
