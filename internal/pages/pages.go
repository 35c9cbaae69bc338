// Package pages holds the page objects for the authentication app.
//
// Page objects talk to the browser through the Browser port so they can be
// exercised against a fake DOM in unit tests and against playwright in
// browser tests.
package pages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kuitang/authflow-e2e/internal/config"
	"github.com/kuitang/authflow-e2e/internal/element"
	"github.com/kuitang/authflow-e2e/internal/obs"
	"github.com/kuitang/authflow-e2e/internal/toast"
)

// Browser is what page objects need from a browser tab.
type Browser interface {
	Goto(ctx context.Context, url string) error
	URL() string
	ReadyState(ctx context.Context) (string, error)
	Find(selector string) element.Node
	FindAll(selector string) ([]element.Node, error)
}

// MessageKind selects which feedback IsMessageDisplayed looks for.
type MessageKind string

const (
	MessageSuccess MessageKind = "success"
	MessageError   MessageKind = "error"
)

// ParseMessageKind lower-cases s. Unknown kinds are returned as-is and
// never match.
func ParseMessageKind(s string) MessageKind {
	return MessageKind(strings.ToLower(strings.TrimSpace(s)))
}

// Page is the behaviour shared by the login and register pages.
type Page interface {
	Name() string
	URL() string
	Navigate(ctx context.Context) error
	EnterText(ctx context.Context, field, text string) error
	ClickButton(ctx context.Context, name string) error
	IsMessageDisplayed(kind MessageKind) bool
	Message() string
	ErrorMessages() []string
	WaitForErrorMessages(ctx context.Context) []string
	Toast() *toast.Reader
}

// Selectors locate the elements page objects interact with. Any playwright
// selector syntax is allowed.
type Selectors struct {
	Username       string
	Email          string
	Password       string
	LoginButton    string
	RegisterButton string
	FormError      string
	Toast          string

	NavBrand     string
	NavHome      string
	NavDashboard string
	NavProfile   string
	NavLogin     string
	NavRegister  string
	Welcome      string
	Logout       string
}

// DefaultSelectors matches the markup of the reference app and of the
// hosted demo it mirrors.
func DefaultSelectors() Selectors {
	return Selectors{
		Username:       "input[name='username']",
		Email:          "input[name='email']",
		Password:       "input[name='password']",
		LoginButton:    "button[type='submit']:has-text('Sign in')",
		RegisterButton: "button[type='submit']:has-text('Create account')",
		FormError:      "p.text-red-600",
		Toast:          "div[role='status']",

		NavBrand:     "nav a:text-is('My App')",
		NavHome:      "nav a:text-is('Home')",
		NavDashboard: "nav a:text-is('Dashboard')",
		NavProfile:   "nav a:text-is('Profile')",
		NavLogin:     "nav a:text-is('Login')",
		NavRegister:  "nav a:text-is('Register')",
		Welcome:      "nav span:has-text('Welcome')",
		Logout:       "nav button:text-is('Logout')",
	}
}

// Options configure page objects.
type Options struct {
	BaseURL           string
	ActionTimeout     time.Duration
	ReadyStateTimeout time.Duration
	ToastTimeout      time.Duration
	SubmitSettle      time.Duration
	Selectors         Selectors
}

// OptionsFromConfig derives page options from the suite configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseURL:           cfg.BaseURL,
		ActionTimeout:     cfg.ActionTimeout,
		ReadyStateTimeout: cfg.ReadyStateTimeout,
		ToastTimeout:      cfg.ToastTimeout,
		SubmitSettle:      cfg.SubmitSettle,
		Selectors:         DefaultSelectors(),
	}
}

// readyStatePoll is the gap between document.readyState checks.
const readyStatePoll = 100 * time.Millisecond

// formErrorPoll is the gap between form error checks.
const formErrorPoll = 50 * time.Millisecond

// base implements navigation and the message logic both forms share.
type base struct {
	name    string
	path    string
	browser Browser
	opts    Options
	el      *element.Helper
	toast   *toast.Reader
}

func newBase(name, path string, b Browser, opts Options) base {
	return base{
		name:    name,
		path:    path,
		browser: b,
		opts:    opts,
		el:      element.New(opts.ActionTimeout),
		toast:   toast.NewReader(b.Find(opts.Selectors.Toast), opts.ToastTimeout),
	}
}

func (p *base) Name() string { return p.name }

func (p *base) URL() string {
	return strings.TrimRight(p.opts.BaseURL, "/") + p.path
}

func (p *base) Toast() *toast.Reader { return p.toast }

// Navigate opens the page and waits for the document to finish loading. A
// load that never completes is logged, not returned: the next element wait
// reports the real problem.
func (p *base) Navigate(ctx context.Context) error {
	url := p.URL()
	obs.From(ctx).Info("page_navigate", "page", p.name, "url", url)
	if err := p.browser.Goto(ctx, url); err != nil {
		return fmt.Errorf("navigate to %s page: %w", p.name, err)
	}
	p.toast.Reset()
	p.waitForLoad(ctx)
	return nil
}

func (p *base) waitForLoad(ctx context.Context) {
	timeout := p.opts.ReadyStateTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	deadline := time.Now().Add(timeout)
	for {
		state, err := p.browser.ReadyState(ctx)
		if err == nil && state == "complete" {
			return
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			obs.From(ctx).Warn("page_load_wait_timeout", "page", p.name, "state", state, "err", errString(err))
			return
		}
		if !sleep(ctx, readyStatePoll) {
			return
		}
	}
}

func (p *base) find(selector string) element.Node {
	return p.browser.Find(selector)
}

// IsMessageDisplayed checks for success or error feedback. Form errors take
// priority over the toast for the error kind.
func (p *base) IsMessageDisplayed(kind MessageKind) bool {
	switch kind {
	case MessageSuccess:
		return p.toast.IsDisplayed() && p.toast.IsSuccess()
	case MessageError:
		if len(p.ErrorMessages()) > 0 {
			return true
		}
		return p.toast.IsDisplayed() && p.toast.IsError()
	default:
		obs.Pkg("pages").Warn("unknown_message_kind", "page", p.name, "kind", string(kind))
		return false
	}
}

// Message returns form errors joined by ", ", else the toast text, else "".
func (p *base) Message() string {
	if errs := p.ErrorMessages(); len(errs) > 0 {
		return strings.Join(errs, ", ")
	}
	if p.toast.IsDisplayed() {
		return p.toast.Message()
	}
	return ""
}

// ErrorMessages returns the text of every visible form error.
func (p *base) ErrorMessages() []string {
	nodes, err := p.browser.FindAll(p.opts.Selectors.FormError)
	if err != nil {
		obs.Pkg("pages").Debug("form_errors_unreadable", "page", p.name, "err", err.Error())
		return []string{}
	}
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if !p.el.IsDisplayedNoWait(n) {
			continue
		}
		text := strings.TrimSpace(p.el.TextNoWait(n))
		if text != "" {
			out = append(out, text)
		}
	}
	return out
}

// WaitForErrorMessages polls ErrorMessages until a form error shows up, an
// error toast shows instead, or ActionTimeout elapses.
func (p *base) WaitForErrorMessages(ctx context.Context) []string {
	deadline := time.Now().Add(p.el.Timeout)
	for {
		if msgs := p.ErrorMessages(); len(msgs) > 0 {
			return msgs
		}
		if p.toast.IsDisplayed() && p.toast.IsError() {
			return []string{}
		}
		if time.Now().After(deadline) || !sleep(ctx, formErrorPoll) {
			return []string{}
		}
	}
}

// settle pauses after a submit so the toast has time to render.
func (p *base) settle(ctx context.Context) {
	sleep(ctx, p.opts.SubmitSettle)
}

// submittedWith reports whether the page shows a success toast containing
// text after a submit.
func (p *base) submittedWith(ctx context.Context, text string) bool {
	p.settle(ctx)
	return p.toast.IsDisplayed() && p.toast.IsSuccess() && p.toast.Contains(text)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
