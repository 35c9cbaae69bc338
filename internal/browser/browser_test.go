package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/authflow-e2e/internal/config"
	"github.com/kuitang/authflow-e2e/internal/errs"
	"github.com/kuitang/authflow-e2e/internal/obs"
)

func TestLaunchOptions_ChromiumHardening(t *testing.T) {
	t.Parallel()
	lo := launchOptions(Options{Kind: "chrome", Headless: true, SlowMo: 250 * time.Millisecond})
	require.NotNil(t, lo.Headless)
	assert.True(t, *lo.Headless)
	require.NotNil(t, lo.SlowMo)
	assert.Equal(t, 250.0, *lo.SlowMo)
	for _, arg := range chromiumArgs {
		assert.Contains(t, lo.Args, arg)
	}
	assert.NotContains(t, lo.Args, "--start-maximized")

	headed := launchOptions(Options{Kind: config.BrowserChromium})
	assert.Contains(t, headed.Args, "--start-maximized")
	assert.Nil(t, headed.SlowMo)

	ff := launchOptions(Options{Kind: config.BrowserFirefox, Headless: true})
	assert.Empty(t, ff.Args)
}

func TestContextOptions_Viewport(t *testing.T) {
	t.Parallel()
	headless := contextOptions(Options{Headless: true})
	require.NotNil(t, headless.Viewport)
	assert.Equal(t, 1920, headless.Viewport.Width)
	assert.Equal(t, 1080, headless.Viewport.Height)
	assert.Nil(t, headless.NoViewport)

	headed := contextOptions(Options{})
	assert.Nil(t, headed.Viewport)
	require.NotNil(t, headed.NoViewport)
	assert.True(t, *headed.NoViewport)
}

func TestOptionsFromConfig(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Browser = config.BrowserWebKit
	cfg.Headless = true
	o := OptionsFromConfig(cfg)
	assert.Equal(t, config.BrowserWebKit, o.Kind)
	assert.True(t, o.Headless)
	assert.Equal(t, cfg.ActionTimeout, o.ActionTimeout)
	assert.Equal(t, cfg.PageLoadTimeout, o.PageLoadTimeout)
}

func TestWithScenarioID_SetsCorrelationHeader(t *testing.T) {
	t.Parallel()
	var sc sessionConfig
	for _, o := range []SessionOption{WithScenarioID("scn-1"), WithHeader("X-Extra", "1")} {
		o(&sc)
	}
	assert.Equal(t, map[string]string{obs.ScenarioHeader: "scn-1", "X-Extra": "1"}, sc.headers)
}

var (
	sharedOnce   sync.Once
	sharedDriver *Driver
	sharedErr    error
)

// launchOrSkip starts one headless Chromium for the package, skipping when
// playwright or the browser is not installed.
func launchOrSkip(t *testing.T) *Driver {
	t.Helper()
	if testing.Short() {
		t.Skip("browser test skipped in -short mode")
	}
	sharedOnce.Do(func() {
		sharedDriver, sharedErr = Launch(Options{
			Kind:            config.BrowserChromium,
			Headless:        true,
			ActionTimeout:   5 * time.Second,
			PageLoadTimeout: 10 * time.Second,
		})
	})
	if sharedErr != nil {
		if errs.Is(sharedErr, errs.Unavailable) {
			t.Skip("Playwright not available:", sharedErr)
		}
		t.Fatalf("launch: %v", sharedErr)
	}
	return sharedDriver
}

func TestMain(m *testing.M) {
	code := m.Run()
	if sharedDriver != nil {
		_ = sharedDriver.Close()
	}
	os.Exit(code)
}

func TestSession_DrivesRealPage(t *testing.T) {
	var (
		mu      sync.Mutex
		headers []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		headers = append(headers, r.Header.Get(obs.ScenarioHeader))
		mu.Unlock()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<!doctype html><html><body>
<p class="text-red-600">first</p><p class="text-red-600">second</p>
<div role="status" class="toast-success">Saved successfully</div>
</body></html>`)
	}))
	defer srv.Close()

	d := launchOrSkip(t)
	s, err := d.NewSession(WithScenarioID("scn-42"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Goto(ctx, srv.URL+"/page"))
	assert.Equal(t, srv.URL+"/page", s.URL())

	state, err := s.ReadyState(ctx)
	require.NoError(t, err)
	assert.Contains(t, []string{"interactive", "complete"}, state)

	nodes, err := s.FindAll("p.text-red-600")
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	text, err := s.Find("div[role='status']").InnerText()
	require.NoError(t, err)
	assert.Equal(t, "Saved successfully", text)

	png, err := s.Screenshot()
	require.NoError(t, err)
	assert.True(t, len(png) > 8 && string(png[1:4]) == "PNG")
	require.NoError(t, s.ClearCookies())

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, slices.Contains(headers, "scn-42"), "scenario header not sent: %v", headers)
}
