package auth

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Session configuration
const (
	DefaultSessionDuration = 24 * time.Hour
	SessionCookieName      = "session_id"
)

// Session represents an active user session.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionService keeps sessions in memory. Restarting the app signs everyone
// out.
type SessionService struct {
	mu       sync.Mutex
	sessions map[string]Session
	duration time.Duration
	clock    Clock
}

// NewSessionService creates a new session service. A non-positive duration
// means DefaultSessionDuration.
func NewSessionService(duration time.Duration) *SessionService {
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	return &SessionService{
		sessions: make(map[string]Session),
		duration: duration,
		clock:    realClock{},
	}
}

// SetClock replaces the clock used by the service. Intended for testing.
func (s *SessionService) SetClock(c Clock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = c
}

// Duration is how long a new session stays valid.
func (s *SessionService) Duration() time.Duration {
	return s.duration
}

// Create creates a new session for a user.
// Returns the session ID which should be stored in a cookie.
func (s *SessionService) Create(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("create session: empty user ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	id := uuid.NewString()
	s.sessions[id] = Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: now.Add(s.duration),
		CreatedAt: now,
	}
	return id, nil
}

// Validate checks if a session is valid and returns the user ID. Expired
// sessions are dropped.
func (s *SessionService) Validate(ctx context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return "", ErrSessionNotFound
	}
	if !s.clock.Now().Before(session.ExpiresAt) {
		delete(s.sessions, sessionID)
		return "", ErrSessionExpired
	}
	return session.UserID, nil
}

// Delete removes a session (logout). Unknown IDs are ignored.
func (s *SessionService) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// DeleteByUserID removes all sessions for a user.
func (s *SessionService) DeleteByUserID(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

// Cleanup removes all expired sessions and returns how many it dropped.
func (s *SessionService) Cleanup(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	dropped := 0
	for id, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, id)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of stored sessions, expired ones included.
func (s *SessionService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Cookie helpers

// SetCookie sets the session cookie on the response. secure is false only
// for plain-HTTP localhost development.
func SetCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})
}

// ClearCookie removes the session cookie.
func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1, // Delete immediately
	})
}

// GetFromRequest retrieves the session ID from the request cookie.
func GetFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrSessionNotFound
		}
		return "", err
	}
	return cookie.Value, nil
}
