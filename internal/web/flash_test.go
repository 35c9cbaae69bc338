package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// roundTripFlash sets a flash on one response and pops it from the next request.
func roundTripFlash(kind, message string) (*Flash, *httptest.ResponseRecorder) {
	set := httptest.NewRecorder()
	setFlash(set, kind, message, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range set.Result().Cookies() {
		req.AddCookie(c)
	}
	popped := httptest.NewRecorder()
	return popFlash(popped, req, false), popped
}

func TestFlash_RoundTrip(t *testing.T) {
	flash, rec := roundTripFlash(FlashSuccess, "Registration successful! Please login.")
	require.NotNil(t, flash)
	assert.Equal(t, FlashSuccess, flash.Kind)
	assert.Equal(t, "Registration successful! Please login.", flash.Message)

	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, flashCookieName, cleared[0].Name)
	assert.Less(t, cleared[0].MaxAge, 0)
}

func TestFlash_StripsMarkup(t *testing.T) {
	flash, _ := roundTripFlash(FlashError, `<script>alert(1)</script>Bad <b>input</b>`)
	require.NotNil(t, flash)
	assert.Equal(t, "Bad input", flash.Message)
}

func TestFlash_RejectsUnknownKindAndEmpty(t *testing.T) {
	flash, _ := roundTripFlash("info", "hello")
	assert.Nil(t, flash)

	flash, _ = roundTripFlash(FlashSuccess, "<img src=x>")
	assert.Nil(t, flash)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, popFlash(httptest.NewRecorder(), req, false))
}

func testFlash_PlainTextSurvives(t *rapid.T) {
	msg := rapid.StringMatching(`[A-Za-z0-9 !.,?:]{1,60}`).Draw(t, "msg")
	if strings.TrimSpace(msg) == "" {
		return
	}
	flash, _ := roundTripFlash(FlashSuccess, msg)
	if flash == nil {
		t.Fatalf("flash %q was dropped", msg)
	}
	if flash.Message != strings.TrimSpace(msg) {
		t.Fatalf("flash message = %q, want %q", flash.Message, strings.TrimSpace(msg))
	}
}

func TestFlash_PlainTextSurvives(t *testing.T) {
	rapid.Check(t, testFlash_PlainTextSurvives)
}

func TestSafeReturnTo(t *testing.T) {
	tests := map[string]string{
		"":                      "/",
		"/dashboard":            "/dashboard",
		"/profile?tab=1":        "/profile?tab=1",
		"//evil.example":        "/",
		"/\\evil.example":       "/",
		"https://evil.example/": "/",
		"dashboard":             "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeReturnTo(in), "safeReturnTo(%q)", in)
	}
}

func TestStaticHandler_RendersSanitizedMarkdown(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	src := fstest.MapFS{
		"about.md": {Data: []byte("# Hello\n\n<script>alert(1)</script>\n\n[link](https://example.com)\n")},
	}
	h := NewStaticHandlerFS(renderer, src)

	rec := httptest.NewRecorder()
	h.HandleAbout(rec, httptest.NewRequest(http.MethodGet, "/about", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<h1 id="hello">Hello</h1>`)
	assert.Contains(t, body, `href="https://example.com"`)
	assert.NotContains(t, body, "alert(1)")
}

func TestStaticHandler_MissingPage(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	h := NewStaticHandlerFS(renderer, fstest.MapFS{})
	rec := httptest.NewRecorder()
	h.HandleAbout(rec, httptest.NewRequest(http.MethodGet, "/about", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")
}

func TestRenderer_UnknownTemplate(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	err = renderer.Render(httptest.NewRecorder(), "missing.html", PageData{})
	assert.Error(t, err)
}
