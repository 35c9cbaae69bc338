// Package web provides HTTP handlers for the web UI.
package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/kuitang/authflow-e2e/internal/auth"
	"github.com/kuitang/authflow-e2e/internal/obs"
)

// Toast texts set by the handlers.
const (
	MsgLoginSuccessful        = "Login successful"
	MsgRegistrationSuccessful = "Registration successful! Please login."
	MsgLoggedOut              = "You have been logged out"
)

// WebHandler provides HTTP handlers for web UI pages.
type WebHandler struct {
	renderer      *Renderer
	users         *auth.UserService
	sessions      *auth.SessionService
	secureCookies bool
}

// NewWebHandler creates a new web handler.
func NewWebHandler(renderer *Renderer, users *auth.UserService, sessions *auth.SessionService, secureCookies bool) *WebHandler {
	return &WebHandler{
		renderer:      renderer,
		users:         users,
		sessions:      sessions,
		secureCookies: secureCookies,
	}
}

// RegisterRoutes registers all web UI routes on the given mux. throttle
// wraps the form submissions; nil leaves them unthrottled.
func (h *WebHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, throttle func(http.Handler) http.Handler) {
	if throttle == nil {
		throttle = func(next http.Handler) http.Handler { return next }
	}

	mux.Handle("GET /{$}", authMiddleware.OptionalAuth(http.HandlerFunc(h.HandleHome)))

	mux.Handle("GET /login", authMiddleware.OptionalAuth(http.HandlerFunc(h.HandleLoginPage)))
	mux.Handle("POST /login", throttle(http.HandlerFunc(h.HandleLogin)))
	mux.Handle("GET /register", authMiddleware.OptionalAuth(http.HandlerFunc(h.HandleRegisterPage)))
	mux.Handle("POST /register", throttle(http.HandlerFunc(h.HandleRegister)))
	mux.HandleFunc("POST /logout", h.HandleLogout)

	mux.Handle("GET /dashboard", authMiddleware.RequireAuthWithRedirect(http.HandlerFunc(h.HandleDashboard)))
	mux.Handle("GET /profile", authMiddleware.RequireAuthWithRedirect(http.HandlerFunc(h.HandleProfile)))
}

// PageData contains common data passed to all templates.
type PageData struct {
	Title string
	User  *auth.User
	Flash *Flash
}

// LoginPageData contains data for the login page.
type LoginPageData struct {
	PageData
	ReturnTo string
	Username string
	Errors   map[string]string
}

// RegisterPageData contains data for the register page.
type RegisterPageData struct {
	PageData
	Username string
	Email    string
	Errors   map[string]string
}

// ErrorPageData contains data for the error page.
type ErrorPageData struct {
	PageData
	Error     string
	ErrorCode string
}

func pageData(r *http.Request, title string) PageData {
	return PageData{
		Title: title,
		User:  auth.GetUser(r.Context()),
	}
}

// page is pageData plus the pending flash, which it consumes.
func (h *WebHandler) page(w http.ResponseWriter, r *http.Request, title string) PageData {
	data := pageData(r, title)
	data.Flash = popFlash(w, r, h.secureCookies)
	return data
}

func (h *WebHandler) render(w http.ResponseWriter, r *http.Request, code int, name string, data any) {
	if err := h.renderer.RenderStatus(w, code, name, data); err != nil {
		obs.From(r.Context()).Error("render_failed", "template", name, "error", err)
		h.renderer.RenderError(w, http.StatusInternalServerError, "Failed to render page")
	}
}

// HandleHome handles GET / - the landing page, which is also where a
// successful sign in lands.
func (h *WebHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "home.html", h.page(w, r, "Home"))
}

// HandleLoginPage handles GET /login.
func (h *WebHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	data := LoginPageData{
		PageData: h.page(w, r, "Sign In"),
		ReturnTo: r.URL.Query().Get("return_to"),
	}
	h.render(w, r, http.StatusOK, "login.html", data)
}

// HandleLogin handles POST /login. Missing fields re-render the form with
// field errors; bad credentials re-render it with an error toast.
func (h *WebHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	data := LoginPageData{
		PageData: pageData(r, "Sign In"),
		ReturnTo: r.PostFormValue("return_to"),
		Username: username,
	}
	logger := obs.From(r.Context()).With("pkg", "web")

	user, err := h.users.VerifyLogin(r.Context(), username, password)
	var verrs auth.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		data.Errors = fieldErrors(verrs)
		h.render(w, r, http.StatusUnprocessableEntity, "login.html", data)
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		logger.Info("login_rejected", "username", username)
		data.Flash = &Flash{Kind: FlashError, Message: auth.MsgInvalidCredentials}
		h.render(w, r, http.StatusUnauthorized, "login.html", data)
		return
	case err != nil:
		logger.Error("login_failed", "error", err)
		h.renderer.RenderError(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	sessionID, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		logger.Error("session_create_failed", "user_id", user.ID, "error", err)
		h.renderer.RenderError(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}
	auth.SetCookie(w, sessionID, h.sessions.Duration(), h.secureCookies)
	setFlash(w, FlashSuccess, MsgLoginSuccessful, h.secureCookies)
	logger.Info("login_succeeded", "user_id", user.ID)

	http.Redirect(w, r, safeReturnTo(data.ReturnTo), http.StatusFound)
}

// HandleRegisterPage handles GET /register.
func (h *WebHandler) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	data := RegisterPageData{PageData: h.page(w, r, "Create Account")}
	h.render(w, r, http.StatusOK, "register.html", data)
}

// HandleRegister handles POST /register.
func (h *WebHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	form := auth.Registration{
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}

	_, err := h.users.Register(r.Context(), form)
	var verrs auth.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		data := RegisterPageData{
			PageData: pageData(r, "Create Account"),
			Username: form.Username,
			Email:    form.Email,
			Errors:   fieldErrors(verrs),
		}
		h.render(w, r, http.StatusUnprocessableEntity, "register.html", data)
		return
	case err != nil:
		obs.From(r.Context()).Error("register_failed", "pkg", "web", "error", err)
		h.renderer.RenderError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	setFlash(w, FlashSuccess, MsgRegistrationSuccessful, h.secureCookies)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// HandleLogout handles POST /logout.
func (h *WebHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sessionID, err := auth.GetFromRequest(r); err == nil {
		_ = h.sessions.Delete(r.Context(), sessionID)
	}
	auth.ClearCookie(w, h.secureCookies)
	setFlash(w, FlashSuccess, MsgLoggedOut, h.secureCookies)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// HandleDashboard handles GET /dashboard.
func (h *WebHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "dashboard.html", h.page(w, r, "Dashboard"))
}

// HandleProfile handles GET /profile.
func (h *WebHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "profile.html", h.page(w, r, "Profile"))
}

// HandleThrottled renders the submitted form again with a 429 and an error
// toast.
func (h *WebHandler) HandleThrottled(w http.ResponseWriter, r *http.Request) {
	obs.From(r.Context()).Warn("form_throttled", "pkg", "web", "path", r.URL.Path)
	flash := &Flash{Kind: FlashError, Message: auth.MsgTooManyAttempts}
	if r.URL.Path == "/register" {
		data := RegisterPageData{PageData: pageData(r, "Create Account")}
		data.Flash = flash
		h.render(w, r, http.StatusTooManyRequests, "register.html", data)
		return
	}
	data := LoginPageData{PageData: pageData(r, "Sign In")}
	data.Flash = flash
	h.render(w, r, http.StatusTooManyRequests, "login.html", data)
}

// fieldErrors keeps the first message per field.
func fieldErrors(verrs auth.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, ok := out[fe.Field]; !ok {
			out[fe.Field] = fe.Message
		}
	}
	return out
}

// safeReturnTo only follows local absolute paths.
func safeReturnTo(returnTo string) string {
	if !strings.HasPrefix(returnTo, "/") ||
		strings.HasPrefix(returnTo, "//") ||
		strings.HasPrefix(returnTo, "/\\") {
		return "/"
	}
	return returnTo
}
