package pages

import (
	"context"
	"strings"

	"github.com/kuitang/authflow-e2e/internal/element"
	"github.com/kuitang/authflow-e2e/internal/obs"
)

// Nav is the navigation bar rendered on every page.
type Nav struct {
	browser Browser
	sel     Selectors
	el      *element.Helper
}

func NewNav(b Browser, opts Options) *Nav {
	return &Nav{browser: b, sel: opts.Selectors, el: element.New(opts.ActionTimeout)}
}

func (n *Nav) click(ctx context.Context, name, selector string) error {
	obs.From(ctx).Info("nav_click", "link", name)
	return n.el.Click(n.browser.Find(selector))
}

func (n *Nav) GoHome(ctx context.Context) error {
	return n.click(ctx, "home", n.sel.NavHome)
}

func (n *Nav) GoDashboard(ctx context.Context) error {
	return n.click(ctx, "dashboard", n.sel.NavDashboard)
}

func (n *Nav) GoProfile(ctx context.Context) error {
	return n.click(ctx, "profile", n.sel.NavProfile)
}

func (n *Nav) GoLogin(ctx context.Context) error {
	return n.click(ctx, "login", n.sel.NavLogin)
}

func (n *Nav) GoRegister(ctx context.Context) error {
	return n.click(ctx, "register", n.sel.NavRegister)
}

func (n *Nav) Logout(ctx context.Context) error {
	return n.click(ctx, "logout", n.sel.Logout)
}

// WelcomeMessage returns the greeting text, e.g. "Welcome, user".
func (n *Nav) WelcomeMessage() (string, error) {
	text, err := n.el.Text(n.browser.Find(n.sel.Welcome))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// IsLoggedIn reports whether the logout button and the greeting are visible.
func (n *Nav) IsLoggedIn() bool {
	return n.el.IsDisplayed(n.browser.Find(n.sel.Logout)) &&
		n.el.IsDisplayed(n.browser.Find(n.sel.Welcome))
}

// IsLoggedOut reports whether the login link is visible without waiting.
func (n *Nav) IsLoggedOut() bool {
	return n.el.IsDisplayedNoWait(n.browser.Find(n.sel.NavLogin)) &&
		!n.el.IsDisplayedNoWait(n.browser.Find(n.sel.Logout))
}

// IsBrandDisplayed reports whether the "My App" brand link is visible.
func (n *Nav) IsBrandDisplayed() bool {
	return n.el.IsDisplayed(n.browser.Find(n.sel.NavBrand))
}
