package scenario

import (
	"context"

	"github.com/kuitang/authflow-e2e/internal/errs"
	"github.com/kuitang/authflow-e2e/internal/pages"
)

// Session is the browser tab a scenario drives.
type Session interface {
	pages.Browser
	Screenshot() ([]byte, error)
	ClearCookies() error
	Close() error
}

// TestContext is everything one scenario's steps share.
type TestContext struct {
	ID       string
	Name     string
	Feature  string
	Session  Session
	Values   *Context
	Login    *pages.LoginPage
	Register *pages.RegisterPage
	Nav      *pages.Nav
	Options  pages.Options

	current pages.Page
}

// New builds the page objects for session.
func New(id, feature, name string, session Session, opts pages.Options) *TestContext {
	return &TestContext{
		ID:       id,
		Name:     name,
		Feature:  feature,
		Session:  session,
		Values:   NewContext(),
		Login:    pages.NewLoginPage(session, opts),
		Register: pages.NewRegisterPage(session, opts),
		Nav:      pages.NewNav(session, opts),
		Options:  opts,
	}
}

func (tc *TestContext) SetCurrentPage(p pages.Page) {
	tc.current = p
}

// CurrentPage returns the page the scenario last navigated to.
func (tc *TestContext) CurrentPage() (pages.Page, error) {
	if tc.current == nil {
		return nil, errs.New(errs.FailedPrecondition, "no page opened yet in this scenario")
	}
	return tc.current, nil
}

// Close clears the scenario data and closes the session.
func (tc *TestContext) Close() error {
	tc.Values.Clear()
	tc.current = nil
	if tc.Session == nil {
		return nil
	}
	return tc.Session.Close()
}

type ctxKey struct{}

func With(ctx context.Context, tc *TestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// From returns the scenario's TestContext.
func From(ctx context.Context) (*TestContext, error) {
	tc, ok := ctx.Value(ctxKey{}).(*TestContext)
	if !ok || tc == nil {
		return nil, errs.New(errs.FailedPrecondition, "no scenario context")
	}
	return tc, nil
}
