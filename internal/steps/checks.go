package steps

import (
	"fmt"
	"strings"

	"github.com/kuitang/authflow-e2e/internal/errs"
)

// checks collects testify assertion failures for one step. It satisfies
// assert.TestingT so steps can use assert.* and report every failed check at
// once.
type checks struct {
	failures []string
}

func (c *checks) Errorf(format string, args ...any) {
	c.failures = append(c.failures, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Err returns nil when every check passed, else an errs.AssertionFailed
// carrying the failure messages.
func (c *checks) Err() error {
	switch len(c.failures) {
	case 0:
		return nil
	case 1:
		return errs.New(errs.AssertionFailed, c.failures[0])
	}
	return errs.New(errs.AssertionFailed, "checks failed:\n* "+strings.Join(c.failures, "\n* "))
}
