package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kuitang/authflow-e2e/internal/auth"
	"github.com/kuitang/authflow-e2e/internal/config"
	"github.com/kuitang/authflow-e2e/internal/db"
	"github.com/kuitang/authflow-e2e/internal/email"
	"github.com/kuitang/authflow-e2e/internal/obs"
	"github.com/kuitang/authflow-e2e/internal/ratelimit"
)

// Demo account seeded into a fresh database.
const (
	DemoUsername = "user"
	DemoEmail    = "user@example.com"
	DemoPassword = "123456"
)

// sessionSweepInterval is how often expired sessions are dropped.
const sessionSweepInterval = 10 * time.Minute

// App is the reference authentication app: users database, services and
// the HTTP handler serving them.
type App struct {
	Users    *auth.UserService
	Sessions *auth.SessionService

	usersDB *db.UsersDB
	limiter *ratelimit.RateLimiter
	handler http.Handler
	stop    chan struct{}
}

// NewApp opens the database, seeds the demo account when configured and
// builds the handler. A nil mail service sends no welcome emails; a nil
// hasher means argon2id.
func NewApp(ctx context.Context, cfg *config.AppConfig, mail email.EmailService, hasher auth.PasswordHasher) (*App, error) {
	logger := obs.From(ctx).With("pkg", "web")

	var usersDB *db.UsersDB
	var err error
	if cfg.DatabasePath == "" {
		usersDB, err = db.OpenInMemory()
	} else {
		usersDB, err = db.Open(cfg.DatabasePath, cfg.DatabaseKey)
	}
	if err != nil {
		return nil, fmt.Errorf("open users database: %w", err)
	}

	users := auth.NewUserService(usersDB, mail, cfg.BaseURL, hasher)
	sessions := auth.NewSessionService(cfg.SessionDuration)

	if cfg.SeedDemoAccount {
		err := users.EnsureAccount(ctx, auth.Registration{
			Username: DemoUsername,
			Email:    DemoEmail,
			Password: DemoPassword,
		})
		if err != nil {
			usersDB.Close()
			return nil, fmt.Errorf("seed demo account: %w", err)
		}
		logger.Info("demo_account_ready", "username", DemoUsername)
	}

	renderer, err := NewRenderer()
	if err != nil {
		usersDB.Close()
		return nil, err
	}

	limiter := ratelimit.NewRateLimiter(cfg.RateLimitConfig)
	authMiddleware := auth.NewMiddleware(sessions, users)
	webHandler := NewWebHandler(renderer, users, sessions, cfg.RequireSecureCookies())
	staticHandler := NewStaticHandler(renderer)

	app := &App{
		Users:    users,
		Sessions: sessions,
		usersDB:  usersDB,
		limiter:  limiter,
		stop:     make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", app.handleHealth)
	webHandler.RegisterRoutes(mux, authMiddleware, ratelimit.Middleware(limiter, ratelimit.ClientKey, webHandler.HandleThrottled))
	staticHandler.RegisterRoutes(mux, authMiddleware)

	app.handler = obs.RequestContextMiddleware(obs.AccessLogMiddleware("web", mux))

	go app.sweepSessions()
	return app, nil
}

// Handler returns the app's HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Close stops background work and closes the database.
func (a *App) Close() error {
	close(a.stop)
	a.limiter.Stop()
	return a.usersDB.Close()
}

func (a *App) sweepSessions() {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			if n := a.Sessions.Cleanup(context.Background()); n > 0 {
				obs.Pkg("web").Debug("sessions_swept", "dropped", n)
			}
		}
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Users  int64  `json:"users"`
}

// handleHealth handles GET /health.
func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	code := http.StatusOK
	count, err := a.usersDB.Count(r.Context())
	if err != nil {
		obs.From(r.Context()).Error("health_check_failed", "pkg", "web", "error", err)
		resp.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	resp.Users = count

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}
