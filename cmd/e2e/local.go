package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/kuitang/authflow-e2e/internal/auth"
	"github.com/kuitang/authflow-e2e/internal/config"
	"github.com/kuitang/authflow-e2e/internal/email"
	"github.com/kuitang/authflow-e2e/internal/obs"
	"github.com/kuitang/authflow-e2e/internal/ratelimit"
	"github.com/kuitang/authflow-e2e/internal/web"
)

// startLocalApp serves the reference app on a random loopback port and
// points cfg at it, demo account included.
func startLocalApp(ctx context.Context, cfg *config.Config) (func(), error) {
	logger := obs.From(ctx).With("pkg", "e2e")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	baseURL := "http://" + ln.Addr().String()

	appCfg := &config.AppConfig{
		ListenAddr:      ln.Addr().String(),
		BaseURL:         baseURL,
		SeedDemoAccount: true,
		SessionDuration: auth.DefaultSessionDuration,
		RateLimitConfig: ratelimit.DefaultConfig,
		NoEmail:         true,
	}
	app, err := web.NewApp(ctx, appCfg, email.NewMockEmailService(), auth.FakeInsecureHasher{})
	if err != nil {
		ln.Close()
		return nil, err
	}

	srv := &http.Server{Handler: app.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("local_app_failed", "error", err)
		}
	}()

	cfg.BaseURL = baseURL
	cfg.ValidUsername = web.DemoUsername
	cfg.ValidPassword = web.DemoPassword
	cfg.ExistingEmail = web.DemoEmail
	logger.Info("local_app_started", "base_url", baseURL)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("local_app_shutdown_failed", "error", err)
		}
		app.Close()
	}, nil
}
