package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kiwari-pos/tablepos/internal/backend"
	"github.com/kiwari-pos/tablepos/internal/config"
	"github.com/kiwari-pos/tablepos/internal/console"
	"github.com/kiwari-pos/tablepos/internal/logger"
	"github.com/kiwari-pos/tablepos/internal/metrics"
	"github.com/kiwari-pos/tablepos/internal/scan"
	"github.com/kiwari-pos/tablepos/internal/terminal"
	"github.com/kiwari-pos/tablepos/internal/ws"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "terminal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateTerminal(); err != nil {
		return err
	}
	tc := cfg.Terminal

	log := logger.New(logger.Options{
		ServiceName: "tablepos-terminal",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := backend.NewClient(backend.ClientOptions{
		BaseURL:  tc.BackendURL,
		Email:    tc.Email,
		Password: tc.Password,
		Timeout:  tc.RequestTimeout,
		Logger:   log,
	})
	user, err := client.Login(ctx)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	profile := tc.Profile
	if profile == "" {
		profile = user.Profile
	}
	ctx = log.WithProfile(ctx, profile)
	log.Info(log.WithField(ctx, "user", user.Email), "logged in to data service")

	reg := prometheus.NewRegistry()
	hub := ws.NewHub(log)
	go hub.Run(ctx)
	broadcaster := console.NewBroadcaster(hub)

	session := terminal.New(terminal.Options{
		Backend:         client,
		Profile:         profile,
		DefaultCustomer: tc.DefaultCustomer,
		Notifier:        broadcaster,
		Receipts:        broadcaster,
		Logger:          log,
		Metrics:         metrics.NewTerminal(reg),
	})
	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	api := console.New(console.Options{
		Session: session,
		Hub:     hub,
		Scan: scan.Options{
			QuietInterval: tc.ScanQuietInterval,
			MinLength:     tc.ScanMinLength,
		},
		Logger:   log,
		Gatherer: reg,
	})
	defer api.Close()

	srv := &http.Server{
		Addr:              tc.ListenAddr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(log.WithField(ctx, "addr", srv.Addr), "terminal console listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
