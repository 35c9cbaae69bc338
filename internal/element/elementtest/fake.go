// Package elementtest provides an in-memory element.Node for unit tests.
package elementtest

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// pollInterval is how often WaitFor re-checks the fake's state.
const pollInterval = 5 * time.Millisecond

// Node is a fake DOM element. Zero value is a hidden, enabled, empty node.
// All methods are safe for concurrent use so tests can flip state while a
// reader polls.
type Node struct {
	mu       sync.Mutex
	visible  bool
	disabled bool // so the zero value is enabled
	text     string
	value    string
	attrs    map[string]string
	readErr  error

	clicks   int
	jsClicks int
	fills    []string
	onClick  func()
}

// NewVisible returns a visible node with text.
func NewVisible(text string) *Node {
	return &Node{visible: true, text: text}
}

// SetVisible shows or hides the node.
func (n *Node) SetVisible(v bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.visible = v
}

// SetEnabled enables or disables the node.
func (n *Node) SetEnabled(v bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.disabled = !v
}

// SetText sets the rendered text.
func (n *Node) SetText(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.text = text
}

// SetAttr sets an attribute.
func (n *Node) SetAttr(name, value string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.attrs == nil {
		n.attrs = map[string]string{}
	}
	n.attrs[name] = value
}

// Show makes the node visible with text and class in one step.
func (n *Node) Show(text, class string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.visible = true
	n.text = text
	if n.attrs == nil {
		n.attrs = map[string]string{}
	}
	n.attrs["class"] = class
}

// ShowAfter shows the node with text and class after d.
func (n *Node) ShowAfter(d time.Duration, text, class string) {
	time.AfterFunc(d, func() { n.Show(text, class) })
}

// HideAfter hides the node after d.
func (n *Node) HideAfter(d time.Duration) {
	time.AfterFunc(d, func() { n.SetVisible(false) })
}

// FailReads makes every read return err. Pass nil to recover.
func (n *Node) FailReads(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.readErr = err
}

// OnClick runs fn after every successful click.
func (n *Node) OnClick(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onClick = fn
}

// Clicks returns the number of native clicks.
func (n *Node) Clicks() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.clicks
}

// JSClicks returns the number of clicks dispatched through Evaluate.
func (n *Node) JSClicks() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.jsClicks
}

// Value returns the current input value.
func (n *Node) Value() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.value
}

// Fills returns every value passed to Fill.
func (n *Node) Fills() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.fills...)
}

func (n *Node) snapshot() (visible, enabled bool, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.visible, !n.disabled, n.readErr
}

func timeoutOf(ms *float64) time.Duration {
	if ms == nil {
		return time.Second
	}
	return time.Duration(*ms) * time.Millisecond
}

func (n *Node) WaitFor(options ...playwright.LocatorWaitForOptions) error {
	want := playwright.WaitForSelectorStateVisible
	var timeout *float64
	if len(options) > 0 {
		if options[0].State != nil {
			want = options[0].State
		}
		timeout = options[0].Timeout
	}
	deadline := time.Now().Add(timeoutOf(timeout))
	for {
		visible, _, err := n.snapshot()
		if err != nil {
			return err
		}
		switch *want {
		case *playwright.WaitForSelectorStateVisible:
			if visible {
				return nil
			}
		case *playwright.WaitForSelectorStateHidden, *playwright.WaitForSelectorStateDetached:
			if !visible {
				return nil
			}
		default:
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("fake wait for %s: %w", *want, playwright.ErrTimeout)
		}
		time.Sleep(pollInterval)
	}
}

func (n *Node) IsVisible(options ...playwright.LocatorIsVisibleOptions) (bool, error) {
	visible, _, err := n.snapshot()
	return visible, err
}

func (n *Node) IsEnabled(options ...playwright.LocatorIsEnabledOptions) (bool, error) {
	_, enabled, err := n.snapshot()
	return enabled, err
}

func (n *Node) Click(options ...playwright.LocatorClickOptions) error {
	n.mu.Lock()
	if n.readErr != nil {
		n.mu.Unlock()
		return n.readErr
	}
	if !n.visible || n.disabled {
		n.mu.Unlock()
		return fmt.Errorf("fake click on hidden or disabled element: %w", playwright.ErrTimeout)
	}
	n.clicks++
	fn := n.onClick
	n.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (n *Node) Fill(value string, options ...playwright.LocatorFillOptions) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.readErr != nil {
		return n.readErr
	}
	n.value = value
	n.fills = append(n.fills, value)
	return nil
}

func (n *Node) Clear(options ...playwright.LocatorClearOptions) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.readErr != nil {
		return n.readErr
	}
	n.value = ""
	return nil
}

func (n *Node) InnerText(options ...playwright.LocatorInnerTextOptions) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.readErr != nil {
		return "", n.readErr
	}
	return n.text, nil
}

func (n *Node) GetAttribute(name string, options ...playwright.LocatorGetAttributeOptions) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.readErr != nil {
		return "", n.readErr
	}
	return n.attrs[name], nil
}

func (n *Node) Evaluate(expression string, arg interface{}, options ...playwright.LocatorEvaluateOptions) (interface{}, error) {
	n.mu.Lock()
	if n.readErr != nil {
		n.mu.Unlock()
		return nil, n.readErr
	}
	if !strings.Contains(expression, "click()") {
		n.mu.Unlock()
		return nil, fmt.Errorf("fake node cannot evaluate %q", expression)
	}
	n.jsClicks++
	fn := n.onClick
	n.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil, nil
}
