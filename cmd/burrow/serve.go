// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/burrowhq/burrow/internal/auth"
	authpg "github.com/burrowhq/burrow/internal/auth/postgres"
	"github.com/burrowhq/burrow/internal/config"
	"github.com/burrowhq/burrow/internal/logging"
	"github.com/burrowhq/burrow/internal/observability"
	"github.com/burrowhq/burrow/internal/scores"
	scorespg "github.com/burrowhq/burrow/internal/scores/postgres"
	"github.com/burrowhq/burrow/internal/session"
	"github.com/burrowhq/burrow/internal/store"
	"github.com/burrowhq/burrow/internal/web"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the Burrow HTTP server: the JSON API for accounts, sessions,
password resets, and the leaderboard, plus an optional metrics endpoint.`,
		RunE: runServe,
	}

	defaults := config.Defaults()
	cmd.Flags().String("http-addr", defaults.HTTPAddr, "HTTP listen address")
	cmd.Flags().String("metrics-addr", defaults.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL")
	cmd.Flags().String("redis-addr", "", "Redis address for sessions (empty = in-memory)")
	cmd.Flags().Duration("session-ttl", defaults.SessionTTL, "idle session lifetime")
	cmd.Flags().Bool("cookie-secure", defaults.CookieSecure, "mark the session cookie Secure")
	cmd.Flags().String("log-format", defaults.LogFormat, "log format (json or text)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault("burrow", version, cfg.LogFormat)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	sessions, closeSessions, err := newSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	var metrics *observability.Metrics
	var obs *observability.Server
	if cfg.MetricsAddr != "" {
		obs = observability.NewServer(cfg.MetricsAddr, func() bool {
			return pool.Ping(context.Background()) == nil
		})
		metrics = obs.Metrics()
		obsErrs, err := obs.Start()
		if err != nil {
			return err
		}
		go func() {
			if obsErr := <-obsErrs; obsErr != nil {
				logger.Error("observability server failed", "error", obsErr)
				stop()
			}
		}()
		logger.Info("observability server started", "addr", obs.Addr())
	}

	hasher := auth.NewArgon2idHasher()
	users := authpg.NewUserRepository(pool)

	authSvc, err := auth.NewServiceWithLogger(users, sessions, hasher, logger)
	if err != nil {
		return err
	}
	resetSvc, err := auth.NewPasswordResetServiceWithLogger(users, hasher, logger)
	if err != nil {
		return err
	}
	scoresSvc, err := scores.NewService(scorespg.NewScoreRepository(pool), logger)
	if err != nil {
		return err
	}

	srv, err := web.NewServer(web.Options{
		Sessions:     sessions,
		Auth:         authSvc,
		Resets:       resetSvc,
		Scores:       scoresSvc,
		Metrics:      metrics,
		Logger:       logger,
		CookieSecure: cfg.CookieSecure,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return oops.Code("HTTP_SERVER_FAILED").With("addr", cfg.HTTPAddr).Wrap(err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", "error", err)
	}
	if obs != nil {
		if err := obs.Stop(shutdownCtx); err != nil {
			logger.Warn("observability server shutdown", "error", err)
		}
	}
	logger.Info("shutdown complete")
	return nil
}

// newSessionStore picks the session backend from config. Redis when an
// address is given, otherwise the in-process store.
func newSessionStore(ctx context.Context, cfg config.Config) (session.Store, func(), error) {
	if cfg.RedisAddr == "" {
		return session.NewMemoryStore(cfg.SessionTTL), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, oops.Code("REDIS_CONNECT_FAILED").
			With("addr", cfg.RedisAddr).
			Wrap(err)
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			slog.Debug("closing redis client", "error", err)
		}
	}
	return session.NewRedisStore(client, cfg.SessionTTL), closeFn, nil
}
