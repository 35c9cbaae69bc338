package scenario

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kuitang/authflow-e2e/internal/errs"
	"github.com/kuitang/authflow-e2e/internal/pages"
	"github.com/kuitang/authflow-e2e/internal/pages/pagestest"
)

type fakeSession struct {
	*pagestest.Browser
	closed int
}

func (s *fakeSession) Screenshot() ([]byte, error) { return []byte("png"), nil }
func (s *fakeSession) ClearCookies() error         { return nil }
func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

func testContext_SetGetDelete(t *rapid.T) {
	c := NewContext()
	model := map[string]string{}
	keys := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,6}`), 1, 20).Draw(t, "keys")
	for _, k := range keys {
		if rapid.Bool().Draw(t, "delete") {
			c.Delete(k)
			delete(model, k)
			continue
		}
		v := rapid.StringMatching(`[a-zA-Z0-9]{0,10}`).Draw(t, "value")
		c.Set(k, v)
		model[k] = v
	}

	if got := len(c.Keys()); got != len(model) {
		t.Fatalf("Keys() has %d entries, model has %d", got, len(model))
	}
	for k, v := range model {
		if !c.Contains(k) || c.String(k) != v {
			t.Fatalf("key %q: got %q, want %q", k, c.String(k), v)
		}
	}
}

func TestContext_SetGetDelete(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testContext_SetGetDelete)
}

func TestContext_StringAndValue(t *testing.T) {
	t.Parallel()
	c := NewContext()
	c.Set("count", 3)
	c.Set("name", "user")

	assert.Equal(t, "3", c.String("count"))
	assert.Equal(t, "", c.String("missing"))

	n, err := Value[int](c, "count")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = Value[string](c, "count")
	assert.True(t, errs.Is(err, errs.FailedPrecondition))
	_, err = Value[string](c, "missing")
	assert.True(t, errs.Is(err, errs.FailedPrecondition))

	assert.Equal(t, []string{"count", "name"}, c.Keys())
	c.Clear()
	assert.Empty(t, c.Keys())
}

func TestRequireStrings(t *testing.T) {
	t.Parallel()
	c := NewContext()
	c.Set("username", "u")
	c.Set("email", "")

	got, err := RequireStrings(c, "username")
	require.NoError(t, err)
	assert.Equal(t, []string{"u"}, got)

	_, err = RequireStrings(c, "username", "email", "password")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.FailedPrecondition))
	assert.Contains(t, err.Error(), "email")
}

func TestContext_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	c := NewContext()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", j%10)
				c.Set(key, i)
				_ = c.String(key)
				_ = c.Keys()
			}
		}(i)
	}
	wg.Wait()
	assert.Len(t, c.Keys(), 10)
}

func TestTestContext_CarriedThroughContext(t *testing.T) {
	t.Parallel()
	_, err := From(context.Background())
	require.True(t, errs.Is(err, errs.FailedPrecondition))

	session := &fakeSession{Browser: pagestest.New()}
	tc := New("id-1", "Login", "valid login", session, pages.Options{Selectors: pages.DefaultSelectors()})
	got, err := From(With(context.Background(), tc))
	require.NoError(t, err)
	assert.Same(t, tc, got)

	_, err = tc.CurrentPage()
	assert.True(t, errs.Is(err, errs.FailedPrecondition))
	tc.SetCurrentPage(tc.Login)
	p, err := tc.CurrentPage()
	require.NoError(t, err)
	assert.Equal(t, "login", p.Name())

	tc.Values.Set("username", "user")
	require.NoError(t, tc.Close())
	assert.Equal(t, 1, session.closed)
	assert.Empty(t, tc.Values.Keys())
	_, err = tc.CurrentPage()
	assert.Error(t, err)
}
