package toast

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kuitang/authflow-e2e/internal/element"
	"github.com/kuitang/authflow-e2e/internal/obs"
)

const (
	// DefaultTimeout bounds WaitForText.
	DefaultTimeout = time.Second
	// DisappearTimeout bounds WaitForDisappear.
	DisappearTimeout = 5 * time.Second
	// PollInterval is the gap between captures while waiting.
	PollInterval = 50 * time.Millisecond
)

var logger = obs.Pkg("toast")

// Capture is the last toast the Reader saw with non-empty text.
type Capture struct {
	Message string
	Class   string
	Success bool
	Error   bool
	At      time.Time
}

// Kind classifies the capture.
func (c Capture) Kind() Kind {
	switch {
	case c.Success && c.Error:
		return KindAmbiguous
	case c.Success:
		return KindSuccess
	case c.Error:
		return KindError
	default:
		return KindUnknown
	}
}

// Reader watches one toast element. Toasts vanish after a second or two, so
// every query first captures whatever is on screen and falls back to the
// cached capture when nothing is.
//
// A Reader is safe for concurrent use.
type Reader struct {
	node    element.Node
	helper  *element.Helper
	timeout time.Duration

	mu       sync.Mutex
	last     Capture
	captured bool
}

// NewReader returns a Reader over node. timeout bounds WaitForText;
// non-positive means DefaultTimeout.
func NewReader(node element.Node, timeout time.Duration) *Reader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Reader{
		node:    node,
		helper:  element.New(timeout),
		timeout: timeout,
	}
}

// visible reads the toast without waiting.
func (r *Reader) visible() bool {
	return r.helper.IsDisplayedNoWait(r.node)
}

// read returns the live text and class of a visible toast.
func (r *Reader) read() (message, class string, ok bool) {
	if !r.visible() {
		return "", "", false
	}
	message = strings.TrimSpace(r.helper.TextNoWait(r.node))
	class = r.helper.AttributeNoWait(r.node, "class")
	return message, class, true
}

// capture caches the on-screen toast when it has text. Read failures are
// logged and otherwise ignored.
func (r *Reader) capture() {
	message, class, ok := r.read()
	if !ok || message == "" {
		return
	}
	c := Capture{
		Message: message,
		Class:   class,
		Success: IsSuccess(message, class),
		Error:   IsError(message, class),
		At:      time.Now(),
	}

	r.mu.Lock()
	r.last = c
	r.captured = true
	r.mu.Unlock()

	logger.Debug("toast_captured", "message", c.Message, "kind", c.Kind().String())
}

// IsDisplayed reports whether a toast is on screen now or was seen since the
// last Reset.
func (r *Reader) IsDisplayed() bool {
	r.capture()
	if r.visible() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.captured
}

// Message returns the last captured toast text, "" when none.
func (r *Reader) Message() string {
	r.capture()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last.Message
}

// IsSuccess classifies the live toast when one is visible, else returns the
// cached flag. A positive live result also updates the cache.
func (r *Reader) IsSuccess() bool {
	return r.check(IsSuccess, func(c *Capture) *bool { return &c.Success })
}

// IsError is the error counterpart of IsSuccess.
func (r *Reader) IsError() bool {
	return r.check(IsError, func(c *Capture) *bool { return &c.Error })
}

func (r *Reader) check(classify func(message, class string) bool, flag func(*Capture) *bool) bool {
	r.capture()

	message, class, ok := r.read()
	if ok {
		hit := classify(message, class)
		if hit {
			r.mu.Lock()
			*flag(&r.last) = true
			r.last.Message = message
			r.last.Class = class
			r.captured = true
			r.mu.Unlock()
		}
		return hit
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return *flag(&r.last)
}

// Contains reports whether the cached message contains text.
func (r *Reader) Contains(text string) bool {
	r.capture()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.captured && strings.Contains(r.last.Message, text)
}

// WaitForText polls until the captured message contains text, the reader's
// timeout elapses or ctx is done.
func (r *Reader) WaitForText(ctx context.Context, text string) bool {
	r.mu.Lock()
	already := r.captured && strings.Contains(r.last.Message, text)
	r.mu.Unlock()
	if already {
		return true
	}

	found := poll(ctx, r.timeout, func() bool { return r.Contains(text) })
	obs.From(ctx).Debug("toast_wait_for_text", "text", text, "found", found)
	return found
}

// WaitForDisappear polls until no toast is visible, for at most
// DisappearTimeout.
func (r *Reader) WaitForDisappear(ctx context.Context) bool {
	gone := element.New(DisappearTimeout).WaitForHidden(r.node) == nil
	if !gone {
		obs.From(ctx).Warn("toast_did_not_disappear", "timeout", DisappearTimeout.String())
	}
	return gone
}

// Reset forgets the cached capture.
func (r *Reader) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = Capture{}
	r.captured = false
}

// Last returns the cached capture and whether there is one.
func (r *Reader) Last() (Capture, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.captured
}

func poll(ctx context.Context, timeout time.Duration, cond func() bool) bool {
	if cond() {
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return cond()
		case <-ticker.C:
			if cond() {
				return true
			}
		}
	}
}
