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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/kiwari-pos/tablepos/internal/catalog"
	"github.com/kiwari-pos/tablepos/internal/config"
	"github.com/kiwari-pos/tablepos/internal/database"
	"github.com/kiwari-pos/tablepos/internal/logger"
	"github.com/kiwari-pos/tablepos/internal/metrics"
	"github.com/kiwari-pos/tablepos/internal/router"
	"github.com/kiwari-pos/tablepos/internal/ws"
	"github.com/kiwari-pos/tablepos/migrations"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	log := logger.New(logger.Options{
		ServiceName: "tablepos-server",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DB.AutoMigrate {
		if err := migrations.Up(cfg.DB.URL); err != nil {
			return err
		}
		log.Info(ctx, "migrations applied")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DB.URL)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}
	if cfg.DB.MaxConns > 0 {
		poolCfg.MaxConns = cfg.DB.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewServer(reg)

	var cache catalog.Cache
	if cfg.Redis.Enabled() {
		rc, err := catalog.NewRedisCache(ctx, cfg.Redis)
		if err != nil {
			// Lookups fall back to the database.
			log.Warn(log.WithField(ctx, "error", err.Error()), "item cache disabled")
		} else {
			defer rc.Close()
			cache = rc
		}
	}

	hub := ws.NewHub(log)
	go hub.Run(ctx)

	r := router.New(cfg, router.Deps{
		Queries:  database.New(pool),
		Pool:     pool,
		Hub:      hub,
		Cache:    cache,
		Logger:   log,
		Metrics:  m,
		Gatherer: reg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(log.WithField(ctx, "addr", srv.Addr), "data service listening")
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
