package web

import (
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const flashCookieName = "flash"

// Flash kinds. The kind becomes the toast-<kind> class.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot message shown as a toast.
type Flash struct {
	Kind    string
	Message string
}

var flashPolicy = bluemonday.StrictPolicy()

// setFlash stores a flash for the next page rendered for this client.
func setFlash(w http.ResponseWriter, kind, message string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(kind + ":" + message),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   60,
	})
}

// popFlash reads and clears the flash cookie. Markup in the cookie is
// stripped; html/template escapes the rest.
func popFlash(w http.ResponseWriter, r *http.Request, secure bool) *Flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil
	}
	kind, message, ok := strings.Cut(raw, ":")
	if !ok || (kind != FlashSuccess && kind != FlashError) {
		return nil
	}
	message = strings.TrimSpace(html.UnescapeString(flashPolicy.Sanitize(message)))
	if message == "" {
		return nil
	}
	return &Flash{Kind: kind, Message: message}
}
