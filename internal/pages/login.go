package pages

import (
	"context"
	"strings"

	"github.com/kuitang/authflow-e2e/internal/element"
	"github.com/kuitang/authflow-e2e/internal/errs"
	"github.com/kuitang/authflow-e2e/internal/logutil"
	"github.com/kuitang/authflow-e2e/internal/obs"
)

// LoginSuccessMessage is the toast text shown after a successful sign in.
const LoginSuccessMessage = "Login successful"

// LoginPage is the /login form.
type LoginPage struct {
	base
}

var _ Page = (*LoginPage)(nil)

func NewLoginPage(b Browser, opts Options) *LoginPage {
	return &LoginPage{base: newBase("login", "/login", b, opts)}
}

func (p *LoginPage) field(name string) (element.Node, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "username":
		return p.find(p.opts.Selectors.Username), nil
	case "password":
		return p.find(p.opts.Selectors.Password), nil
	}
	return nil, errs.Newf(errs.InvalidArgument, "unknown login field %q", name)
}

func (p *LoginPage) button(name string) (element.Node, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sign in", "login", "submit":
		return p.find(p.opts.Selectors.LoginButton), nil
	}
	return nil, errs.Newf(errs.InvalidArgument, "unknown login button %q", name)
}

// EnterText types text into the named field.
func (p *LoginPage) EnterText(ctx context.Context, field, text string) error {
	node, err := p.field(field)
	if err != nil {
		return err
	}
	obs.From(ctx).Info("enter_text", "page", p.name, "field", field, "value", logutil.MaskValue(field, text))
	return p.el.SetText(node, text)
}

// ClickButton clicks the named button.
func (p *LoginPage) ClickButton(ctx context.Context, name string) error {
	node, err := p.button(name)
	if err != nil {
		return err
	}
	obs.From(ctx).Info("click_button", "page", p.name, "button", name)
	return p.el.Click(node)
}

// Login signs in and reports whether the success toast appeared.
func (p *LoginPage) Login(ctx context.Context, username, password string) (bool, error) {
	if err := p.EnterText(ctx, "username", username); err != nil {
		return false, err
	}
	if err := p.EnterText(ctx, "password", password); err != nil {
		return false, err
	}
	if err := p.ClickButton(ctx, "sign in"); err != nil {
		return false, err
	}
	ok := p.submittedWith(ctx, LoginSuccessMessage)
	obs.From(ctx).Info("login_submitted", "username", username, "success", ok)
	return ok, nil
}

// IsFormDisplayed reports whether both inputs and the submit button are visible.
func (p *LoginPage) IsFormDisplayed() bool {
	s := p.opts.Selectors
	return p.el.IsDisplayed(p.find(s.Username)) &&
		p.el.IsDisplayed(p.find(s.Password)) &&
		p.el.IsDisplayed(p.find(s.LoginButton))
}
