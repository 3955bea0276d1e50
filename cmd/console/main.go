// Package main runs the ParishDesk operator console: a small web shell
// over the remote ChMS API. One process serves one operator session.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parishdesk/console/internal/api"
	"github.com/parishdesk/console/internal/chms"
	"github.com/parishdesk/console/internal/config"
	"github.com/parishdesk/console/internal/console"
	"github.com/parishdesk/console/internal/credential"
	"github.com/parishdesk/console/internal/logging"
	"github.com/parishdesk/console/internal/metrics"
	"github.com/parishdesk/console/internal/middleware"
	"github.com/parishdesk/console/internal/scope"
	"github.com/parishdesk/console/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("configuration error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New("console", cfg.LogLevel, cfg.LogFormat)

	creds := credential.NewFileStore(cfg.TokenDir)
	register := scope.NewRegister()
	flash := console.NewFlash()
	redirects := console.NewRedirector()

	sessions := session.NewController(session.Config{
		AuthURL:     cfg.AuthURL(),
		Credentials: creds,
		Scope:       register,
		Notifier:    flash,
		Navigator:   redirects,
		Logger:      logger,
	})

	client := api.NewClient(api.Config{
		BaseURL:     cfg.APIBaseURL,
		Credentials: creds,
		Scope:       register,
		Logger:      logger,
		OnAuthFailure: func() {
			metrics.RecordSessionTeardown()
			sessions.HandleAuthFailure()
		},
	})
	client.OnResponse(func(resp *http.Response) {
		metrics.RecordUpstreamRequest(resp.Request.Method, resp.StatusCode)
	})

	shell := console.New(console.Deps{
		Sessions:     sessions,
		Branches:     chms.NewBranchService(client),
		Members:      chms.NewMemberService(client),
		Events:       chms.NewEventService(client),
		Nav:          config.LoadNavigationOrDefault(cfg.NavFile),
		Flash:        flash,
		Redirects:    redirects,
		Logger:       logger,
		LoginLimiter: middleware.NewRateLimiter(cfg.LoginRatePerSecond, cfg.LoginBurst, logger),
	})

	// Restore runs before the listener accepts traffic; the route guard
	// additionally blocks on it, so protected content can never render
	// ahead of a resolved session state.
	restoreCtx, cancelRestore := context.WithTimeout(context.Background(), 10*time.Second)
	sessions.Restore(restoreCtx)
	cancelRestore()

	sweeper, err := sessions.StartExpirySweeper(cfg.ExpirySweepSpec)
	if err != nil {
		logger.WithError(err).Error("invalid expiry sweep spec")
		os.Exit(1)
	}
	defer sweeper.Stop()

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      shell.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.WithFields(map[string]interface{}{
			"addr": cfg.ListenAddr,
			"api":  cfg.APIBaseURL,
		}).Info("console listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.WithError(err).Error("server error")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown error")
	}
}
