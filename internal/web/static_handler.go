package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"sync"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/kuitang/authflow-e2e/internal/auth"
	"github.com/kuitang/authflow-e2e/internal/obs"
)

//go:embed content/*.md
var contentFS embed.FS

// StaticPageData contains data for static pages.
type StaticPageData struct {
	PageData
	Body template.HTML
}

// StaticHandler serves info pages rendered from embedded markdown.
type StaticHandler struct {
	renderer *Renderer
	srcFS    fs.FS
	cache    map[string][]byte
	cacheMu  sync.RWMutex
}

// NewStaticHandler creates a static page handler reading markdown from the
// embedded content directory.
func NewStaticHandler(renderer *Renderer) *StaticHandler {
	sub, err := fs.Sub(contentFS, "content")
	if err != nil {
		panic(err) // embedded path is fixed at compile time
	}
	return NewStaticHandlerFS(renderer, sub)
}

// NewStaticHandlerFS creates a static page handler reading <slug>.md files
// from srcFS.
func NewStaticHandlerFS(renderer *Renderer, srcFS fs.FS) *StaticHandler {
	return &StaticHandler{
		renderer: renderer,
		srcFS:    srcFS,
		cache:    make(map[string][]byte),
	}
}

// RegisterRoutes registers static page routes on the given mux.
func (h *StaticHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.Handle("GET /about", authMiddleware.OptionalAuth(http.HandlerFunc(h.HandleAbout)))
}

// HandleAbout serves the about page.
func (h *StaticHandler) HandleAbout(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, r, "about", "About")
}

// servePage renders <slug>.md through static.html.
func (h *StaticHandler) servePage(w http.ResponseWriter, r *http.Request, slug, title string) {
	htmlContent, err := h.readCached(slug)
	if err != nil {
		h.renderer.RenderError(w, http.StatusNotFound, "Page not found")
		return
	}

	data := StaticPageData{
		PageData: pageData(r, title),
		Body:     template.HTML(htmlContent),
	}

	if err := h.renderer.Render(w, "static.html", data); err != nil {
		obs.From(r.Context()).Error("render_failed", "page", slug, "error", err)
		h.renderer.RenderError(w, http.StatusInternalServerError, "Failed to render page")
	}
}

// readCached returns the rendered HTML for slug, converting the markdown on
// first use.
func (h *StaticHandler) readCached(slug string) ([]byte, error) {
	h.cacheMu.RLock()
	content, ok := h.cache[slug]
	h.cacheMu.RUnlock()

	if ok {
		return content, nil
	}

	md, err := fs.ReadFile(h.srcFS, slug+".md")
	if err != nil {
		return nil, err
	}
	content = renderMarkdownContent(md)

	h.cacheMu.Lock()
	h.cache[slug] = content
	h.cacheMu.Unlock()

	return content, nil
}

// ClearCache clears the static page cache (useful for development).
func (h *StaticHandler) ClearCache() {
	h.cacheMu.Lock()
	h.cache = make(map[string][]byte)
	h.cacheMu.Unlock()
}

// renderMarkdownContent converts markdown to sanitized HTML.
func renderMarkdownContent(md []byte) []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse(md)

	opts := html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	}
	htmlContent := markdown.Render(doc, html.NewRenderer(opts))

	// Sanitize HTML to prevent XSS attacks
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("pre", "code")
	policy.AllowAttrs("class").OnElements("code", "pre")
	return policy.SanitizeBytes(htmlContent)
}
