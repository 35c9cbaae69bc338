// Package element wraps element lookups with bounded waits.
//
// Every wait is capped by Helper.Timeout. Expired waits surface as
// errs.Timeout so callers can tell "not there" apart from a broken page.
package element

import (
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/authflow-e2e/internal/errs"
	"github.com/kuitang/authflow-e2e/internal/obs"
)

// Node is the part of playwright.Locator the page objects use.
type Node interface {
	WaitFor(options ...playwright.LocatorWaitForOptions) error
	IsVisible(options ...playwright.LocatorIsVisibleOptions) (bool, error)
	IsEnabled(options ...playwright.LocatorIsEnabledOptions) (bool, error)
	Click(options ...playwright.LocatorClickOptions) error
	Fill(value string, options ...playwright.LocatorFillOptions) error
	Clear(options ...playwright.LocatorClearOptions) error
	InnerText(options ...playwright.LocatorInnerTextOptions) (string, error)
	GetAttribute(name string, options ...playwright.LocatorGetAttributeOptions) (string, error)
	Evaluate(expression string, arg interface{}, options ...playwright.LocatorEvaluateOptions) (interface{}, error)
}

var _ Node = (playwright.Locator)(nil)

// DefaultTimeout applies when a Helper is built with a non-positive timeout.
const DefaultTimeout = 5 * time.Second

// noWaitMS bounds reads that must not block on a missing element.
const noWaitMS = 100

// enabledPollInterval is how often WaitForClickable re-checks IsEnabled.
const enabledPollInterval = 50 * time.Millisecond

var logger = obs.Pkg("element")

// Helper performs element interactions with a shared timeout.
type Helper struct {
	Timeout time.Duration
}

// New returns a Helper waiting at most timeout per interaction.
func New(timeout time.Duration) *Helper {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Helper{Timeout: timeout}
}

func (h *Helper) timeout() time.Duration {
	if h == nil || h.Timeout <= 0 {
		return DefaultTimeout
	}
	return h.Timeout
}

func (h *Helper) timeoutMS() *float64 {
	return playwright.Float(float64(h.timeout().Milliseconds()))
}

// classify converts playwright timeouts into errs.Timeout.
func (h *Helper) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return errs.Wrap(errs.Timeout, fmt.Sprintf("%s: timed out after %s", op, h.timeout()), err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// WaitForVisible blocks until n is visible.
func (h *Helper) WaitForVisible(n Node) error {
	err := n.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: h.timeoutMS(),
	})
	return h.classify("wait for visible", err)
}

// WaitForHidden blocks until n is hidden or detached.
func (h *Helper) WaitForHidden(n Node) error {
	err := n.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateHidden,
		Timeout: h.timeoutMS(),
	})
	return h.classify("wait for hidden", err)
}

// WaitForAllVisible blocks until every node is visible, sharing one deadline.
func (h *Helper) WaitForAllVisible(nodes []Node) error {
	deadline := time.Now().Add(h.timeout())
	for i, n := range nodes {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return errs.New(errs.Timeout, fmt.Sprintf("wait for all visible: timed out after %s at element %d of %d", h.timeout(), i+1, len(nodes)))
		}
		sub := &Helper{Timeout: remaining}
		if err := sub.WaitForVisible(n); err != nil {
			return fmt.Errorf("element %d of %d: %w", i+1, len(nodes), err)
		}
	}
	return nil
}

// WaitForClickable blocks until n is visible and enabled.
func (h *Helper) WaitForClickable(n Node) error {
	deadline := time.Now().Add(h.timeout())
	if err := h.WaitForVisible(n); err != nil {
		return err
	}
	for {
		enabled, err := n.IsEnabled(playwright.LocatorIsEnabledOptions{Timeout: playwright.Float(noWaitMS)})
		if err == nil && enabled {
			return nil
		}
		if time.Now().After(deadline) {
			if err != nil {
				return h.classify("wait for clickable", err)
			}
			return errs.New(errs.Timeout, fmt.Sprintf("wait for clickable: still disabled after %s", h.timeout()))
		}
		time.Sleep(enabledPollInterval)
	}
}

// Click waits until n is clickable, then clicks it.
func (h *Helper) Click(n Node) error {
	if err := h.WaitForClickable(n); err != nil {
		return err
	}
	return h.classify("click", n.Click(playwright.LocatorClickOptions{Timeout: h.timeoutMS()}))
}

// JSClick waits until n is visible and dispatches a DOM click, bypassing
// overlays and actionability checks.
func (h *Helper) JSClick(n Node) error {
	if err := h.WaitForVisible(n); err != nil {
		return err
	}
	_, err := n.Evaluate("el => el.click()", nil, playwright.LocatorEvaluateOptions{Timeout: h.timeoutMS()})
	return h.classify("js click", err)
}

// SetText waits until n is visible, clears it and types text.
func (h *Helper) SetText(n Node, text string) error {
	if err := h.WaitForVisible(n); err != nil {
		return err
	}
	if err := n.Clear(playwright.LocatorClearOptions{Timeout: h.timeoutMS()}); err != nil {
		return h.classify("clear", err)
	}
	if err := n.Fill(text, playwright.LocatorFillOptions{Timeout: h.timeoutMS()}); err != nil {
		return h.classify("fill", err)
	}
	logger.Debug("text_set", "text_len", len(text))
	return nil
}

// Text waits until n is visible and returns its rendered text.
func (h *Helper) Text(n Node) (string, error) {
	if err := h.WaitForVisible(n); err != nil {
		return "", err
	}
	text, err := n.InnerText(playwright.LocatorInnerTextOptions{Timeout: h.timeoutMS()})
	if err != nil {
		return "", h.classify("inner text", err)
	}
	return text, nil
}

// TextNoWait returns n's text if it is visible right now, else "".
func (h *Helper) TextNoWait(n Node) string {
	if !h.IsDisplayedNoWait(n) {
		return ""
	}
	text, err := n.InnerText(playwright.LocatorInnerTextOptions{Timeout: playwright.Float(noWaitMS)})
	if err != nil {
		return ""
	}
	return text
}

// IsDisplayedNoWait reports current visibility. Errors count as hidden.
func (h *Helper) IsDisplayedNoWait(n Node) bool {
	visible, err := n.IsVisible()
	return err == nil && visible
}

// IsDisplayed waits for n to become visible and reports whether it did.
func (h *Helper) IsDisplayed(n Node) bool {
	return h.WaitForVisible(n) == nil
}

// IsEnabled waits for n to become visible and reports whether it is enabled.
func (h *Helper) IsEnabled(n Node) bool {
	if h.WaitForVisible(n) != nil {
		return false
	}
	enabled, err := n.IsEnabled(playwright.LocatorIsEnabledOptions{Timeout: playwright.Float(noWaitMS)})
	return err == nil && enabled
}

// Attribute waits until n is visible and returns the named attribute.
func (h *Helper) Attribute(n Node, name string) (string, error) {
	if err := h.WaitForVisible(n); err != nil {
		return "", err
	}
	value, err := n.GetAttribute(name, playwright.LocatorGetAttributeOptions{Timeout: h.timeoutMS()})
	if err != nil {
		return "", h.classify("get attribute "+name, err)
	}
	return value, nil
}

// AttributeNoWait returns the named attribute of a visible n, else "".
func (h *Helper) AttributeNoWait(n Node, name string) string {
	if !h.IsDisplayedNoWait(n) {
		return ""
	}
	value, err := n.GetAttribute(name, playwright.LocatorGetAttributeOptions{Timeout: playwright.Float(noWaitMS)})
	if err != nil {
		return ""
	}
	return value
}
