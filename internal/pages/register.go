package pages

import (
	"context"
	"strings"

	"github.com/kuitang/authflow-e2e/internal/element"
	"github.com/kuitang/authflow-e2e/internal/errs"
	"github.com/kuitang/authflow-e2e/internal/logutil"
	"github.com/kuitang/authflow-e2e/internal/obs"
)

// RegisterSuccessMessage is the toast text shown after an account is created.
const RegisterSuccessMessage = "Registration successful"

// RegisterPage is the /register form.
type RegisterPage struct {
	base
}

var _ Page = (*RegisterPage)(nil)

func NewRegisterPage(b Browser, opts Options) *RegisterPage {
	return &RegisterPage{base: newBase("register", "/register", b, opts)}
}

func (p *RegisterPage) field(name string) (element.Node, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "username":
		return p.find(p.opts.Selectors.Username), nil
	case "email":
		return p.find(p.opts.Selectors.Email), nil
	case "password":
		return p.find(p.opts.Selectors.Password), nil
	}
	return nil, errs.Newf(errs.InvalidArgument, "unknown register field %q", name)
}

func (p *RegisterPage) button(name string) (element.Node, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "register", "create account", "signup", "sign up":
		return p.find(p.opts.Selectors.RegisterButton), nil
	}
	return nil, errs.Newf(errs.InvalidArgument, "unknown register button %q", name)
}

func (p *RegisterPage) EnterText(ctx context.Context, field, text string) error {
	node, err := p.field(field)
	if err != nil {
		return err
	}
	obs.From(ctx).Info("enter_text", "page", p.name, "field", field, "value", logutil.MaskValue(field, text))
	return p.el.SetText(node, text)
}

func (p *RegisterPage) ClickButton(ctx context.Context, name string) error {
	node, err := p.button(name)
	if err != nil {
		return err
	}
	obs.From(ctx).Info("click_button", "page", p.name, "button", name)
	return p.el.Click(node)
}

// Register fills the form, submits it and reports whether the success toast
// appeared.
func (p *RegisterPage) Register(ctx context.Context, username, email, password string) (bool, error) {
	for _, f := range []struct{ name, value string }{
		{"username", username},
		{"email", email},
		{"password", password},
	} {
		if err := p.EnterText(ctx, f.name, f.value); err != nil {
			return false, err
		}
	}
	if err := p.ClickButton(ctx, "create account"); err != nil {
		return false, err
	}
	ok := p.submittedWith(ctx, RegisterSuccessMessage)
	obs.From(ctx).Info("register_submitted", "username", username, "success", ok)
	return ok, nil
}

func (p *RegisterPage) IsFormDisplayed() bool {
	s := p.opts.Selectors
	return p.el.IsDisplayed(p.find(s.Username)) &&
		p.el.IsDisplayed(p.find(s.Email)) &&
		p.el.IsDisplayed(p.find(s.Password)) &&
		p.el.IsDisplayed(p.find(s.RegisterButton))
}
