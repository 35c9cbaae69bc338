package auth

import (
	"context"
	"net/http"
	"net/url"
)

// Context keys for auth data
type contextKey string

const userKey contextKey = "user"

// Middleware provides authentication middleware for HTTP handlers.
type Middleware struct {
	sessionService *SessionService
	userService    *UserService
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(sessionService *SessionService, userService *UserService) *Middleware {
	return &Middleware{
		sessionService: sessionService,
		userService:    userService,
	}
}

// OptionalAuth adds the signed-in user to the context when the request has a
// valid session, and continues either way.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := m.lookup(r); user != nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthWithRedirect sends anonymous visitors to /login with a return_to
// parameter.
func (m *Middleware) RequireAuthWithRedirect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := m.lookup(r)
		if user == nil {
			http.Redirect(w, r, "/login?return_to="+url.QueryEscape(r.URL.Path), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func (m *Middleware) lookup(r *http.Request) *User {
	sessionID, err := GetFromRequest(r)
	if err != nil {
		return nil
	}
	userID, err := m.sessionService.Validate(r.Context(), sessionID)
	if err != nil {
		return nil
	}
	user, err := m.userService.Get(r.Context(), userID)
	if err != nil {
		return nil
	}
	return user
}

// WithUser stores the signed-in user on ctx.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser retrieves the signed-in user from the request context.
// Returns nil if no user is authenticated.
func GetUser(ctx context.Context) *User {
	user, _ := ctx.Value(userKey).(*User)
	return user
}

// IsAuthenticated checks if the context has an authenticated user.
func IsAuthenticated(ctx context.Context) bool {
	return GetUser(ctx) != nil
}
