package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/authflow-e2e/internal/element"
)

// Session is one browser context with a single page.
type Session struct {
	ctx         playwright.BrowserContext
	page        playwright.Page
	loadTimeout time.Duration
}

// Page exposes the underlying playwright page.
func (s *Session) Page() playwright.Page { return s.page }

// Goto loads url and waits for DOMContentLoaded.
func (s *Session) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.loadTimeout.Milliseconds())),
	})
	if err != nil {
		return unavailable("goto "+url, err)
	}
	return nil
}

func (s *Session) URL() string {
	return s.page.URL()
}

// ReadyState returns document.readyState.
func (s *Session) ReadyState(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := s.page.Evaluate("() => document.readyState")
	if err != nil {
		return "", err
	}
	state, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("readyState is %T", v)
	}
	return state, nil
}

// Find returns a lazy locator for the first match of selector.
func (s *Session) Find(selector string) element.Node {
	return s.page.Locator(selector).First()
}

// FindAll returns every element currently matching selector.
func (s *Session) FindAll(selector string) ([]element.Node, error) {
	locs, err := s.page.Locator(selector).All()
	if err != nil {
		return nil, err
	}
	nodes := make([]element.Node, len(locs))
	for i, l := range locs {
		nodes[i] = l
	}
	return nodes, nil
}

// Screenshot captures the full page as PNG.
func (s *Session) Screenshot() ([]byte, error) {
	return s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
}

func (s *Session) ClearCookies() error {
	return s.ctx.ClearCookies()
}

// Close closes the page's browser context.
func (s *Session) Close() error {
	return s.ctx.Close()
}
