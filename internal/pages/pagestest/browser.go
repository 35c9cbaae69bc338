// Package pagestest provides a fake pages.Browser backed by elementtest nodes.
package pagestest

import (
	"context"
	"sync"

	"github.com/kuitang/authflow-e2e/internal/element"
	"github.com/kuitang/authflow-e2e/internal/element/elementtest"
)

// Browser is a fake tab. Selectors resolve to nodes created on first use, so
// a test can configure a node before or after the page object looks it up.
type Browser struct {
	mu         sync.Mutex
	url        string
	readyState string
	gotoErr    error
	visits     []string
	nodes      map[string]*elementtest.Node
	lists      map[string][]*elementtest.Node
	listErr    error
	onGoto     func(url string)
}

func New() *Browser {
	return &Browser{
		readyState: "complete",
		nodes:      map[string]*elementtest.Node{},
		lists:      map[string][]*elementtest.Node{},
	}
}

// Node returns the node for selector, creating a hidden one if needed.
func (b *Browser) Node(selector string) *elementtest.Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[selector]
	if !ok {
		n = &elementtest.Node{}
		b.nodes[selector] = n
	}
	return n
}

// SetList sets the nodes FindAll returns for selector.
func (b *Browser) SetList(selector string, nodes ...*elementtest.Node) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists[selector] = nodes
}

// FailList makes FindAll return err.
func (b *Browser) FailList(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listErr = err
}

// SetReadyState sets what ReadyState reports.
func (b *Browser) SetReadyState(state string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readyState = state
}

// FailGoto makes Goto return err.
func (b *Browser) FailGoto(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gotoErr = err
}

// OnGoto runs fn after every successful Goto.
func (b *Browser) OnGoto(fn func(url string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onGoto = fn
}

// SetURL simulates a client-side redirect.
func (b *Browser) SetURL(url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.url = url
}

// Visits returns every URL passed to Goto.
func (b *Browser) Visits() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.visits...)
}

func (b *Browser) Goto(ctx context.Context, url string) error {
	b.mu.Lock()
	if b.gotoErr != nil {
		err := b.gotoErr
		b.mu.Unlock()
		return err
	}
	b.url = url
	b.visits = append(b.visits, url)
	fn := b.onGoto
	b.mu.Unlock()
	if fn != nil {
		fn(url)
	}
	return nil
}

func (b *Browser) URL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.url
}

func (b *Browser) ReadyState(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readyState, nil
}

func (b *Browser) Find(selector string) element.Node {
	return b.Node(selector)
}

func (b *Browser) FindAll(selector string) ([]element.Node, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr != nil {
		return nil, b.listErr
	}
	out := make([]element.Node, 0, len(b.lists[selector]))
	for _, n := range b.lists[selector] {
		out = append(out, n)
	}
	return out, nil
}
