// Command authapp serves the reference authentication app the end-to-end
// suite runs against.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kuitang/authflow-e2e/internal/config"
	"github.com/kuitang/authflow-e2e/internal/email"
	"github.com/kuitang/authflow-e2e/internal/obs"
	"github.com/kuitang/authflow-e2e/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	obs.Init()
	logger := obs.Pkg("main")

	noEmail, addr := config.ParseAppFlags()
	cfg, err := config.LoadAppConfig(noEmail, addr)
	if err != nil {
		logger.Error("config_invalid", "error", err)
		os.Exit(1)
	}

	var mail email.EmailService
	if cfg.NoEmail {
		mail = email.NewMockEmailService()
	} else {
		mail = email.NewResendEmailService(cfg.ResendAPIKey, cfg.ResendFromEmail)
	}

	app, err := web.NewApp(context.Background(), cfg, mail, nil)
	if err != nil {
		logger.Error("app_init_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server_listening", "addr", cfg.ListenAddr, "base_url", cfg.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown_signal_received")
	case err := <-serverErr:
		logger.Error("server_failed", "error", err)
		app.Close()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	logger.Info("server_stopped")
}
