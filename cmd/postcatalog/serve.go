package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"postcatalog/internal/cache"
	"postcatalog/internal/catalog"
	"postcatalog/internal/database"
	"postcatalog/internal/handlers"
	"postcatalog/internal/middleware"
	"postcatalog/internal/router"
	"postcatalog/internal/session"
	"postcatalog/internal/store"
)

// serve runs the HTTP API until SIGINT or SIGTERM, then drains connections.
func serve(ctx context.Context, _ *cli.Command) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}

	// Development databases get an admin account to log in with.
	if cfg.IsDev() {
		if err := database.Seed(ctx, db); err != nil {
			return err
		}
	}

	valkey, err := cache.ConnectValkey(ctx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword, cfg.ValkeyDB)
	if err != nil {
		return fmt.Errorf("connect valkey: %w", err)
	}
	defer valkey.Close()

	sessions := session.NewStore(valkey, session.DefaultTTL)
	svc := catalog.NewService(
		store.New(db),
		cache.NewPostCache(valkey, cache.PostTTL),
		store.NewCacheLogStore(db),
	)

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRateLimit, time.Minute, middleware.LoginKeys)
	defer loginLimiter.Stop()

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: router.New(handlers.New(svc, sessions), router.Options{
			Sessions:     sessions,
			LoginLimiter: loginLimiter,
			CORSOrigins:  cfg.CORSOrigins,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down", "timeout", cfg.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped gracefully", "pid", os.Getpid())
	return nil
}
