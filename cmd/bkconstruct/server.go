// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

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

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/olegiv/bkconstruct/internal/auth"
	"github.com/olegiv/bkconstruct/internal/cache"
	"github.com/olegiv/bkconstruct/internal/config"
	"github.com/olegiv/bkconstruct/internal/metrics"
	"github.com/olegiv/bkconstruct/internal/notify"
	"github.com/olegiv/bkconstruct/internal/rbac"
	"github.com/olegiv/bkconstruct/internal/render"
	"github.com/olegiv/bkconstruct/internal/scheduler"
	"github.com/olegiv/bkconstruct/internal/service"
	"github.com/olegiv/bkconstruct/internal/session"
	"github.com/olegiv/bkconstruct/internal/storage"
	"github.com/olegiv/bkconstruct/internal/store"
)

// maxRequestBody caps any request body; individual files are checked by the services.
const maxRequestBody = 128 * service.MiB

// serve runs the HTTP server until SIGINT or SIGTERM.
func serve(ctx context.Context) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer closeDB(db)
	logger := slog.Default()

	// Seed roles always; the default admin only on request
	if cfg.DoSeed {
		if err := store.Seed(ctx, db); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	} else {
		m, err := rbac.Default()
		if err != nil {
			return err
		}
		if err := store.SeedAccess(ctx, db, m); err != nil {
			return fmt.Errorf("seeding roles: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}

	sender, closeSender, err := openSender(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSender()
	dispatcher := notify.NewDispatcher(sender, logger, notify.DefaultConfig())
	dispatcher.OnSent(metrics.RecordNotification)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	sessionManager := session.New(db, cfg.IsDevelopment(), cfg.SessionLifetime)
	tracker := session.NewTracker(store.New(db), sessionManager.Store, cfg.SessionLifetime, logger)
	slog.Info("session manager initialized", "lifetime", cfg.SessionLifetime)

	svc := services{
		access: service.NewAccessService(db, tracker, service.AccessConfig{
			Verifier: auth.NewEmailVerifier(cfg.SessionSecret),
			Notifier: dispatcher,
			BaseURL:  cfg.BaseURL,
			Logger:   logger,
		}),
		audit:   service.NewAuditLog(db, logger),
		content: service.NewContentService(db, st, logger),
		intake: service.NewIntakeService(db, st, service.IntakeConfig{
			NotifyTo: cfg.NotifyTo,
			Notifier: dispatcher,
			Logger:   logger,
			OnSubmit: metrics.RecordSubmission,
		}),
		leads:     service.NewLeadService(db, st, logger),
		dashboard: service.NewDashboardService(db, logger),
	}

	var pages cache.Cache
	if cfg.PageCacheTTL > 0 {
		pages = cache.New(cache.Config{RedisURL: cfg.RedisURL, TTL: cfg.PageCacheTTL}, logger)
		defer func() { _ = pages.Close() }()
		svc.content.OnChange(cache.ClearOnChange(pages, logger))
		if cfg.MetricsEnabled {
			if err := metrics.RegisterPageCache(prometheus.DefaultRegisterer, pages.Stats); err != nil {
				return fmt.Errorf("registering page cache metrics: %w", err)
			}
		}
	}

	sched, err := newScheduler(cfg, tracker, logger)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	storageDir := ""
	if !cfg.UseMinIO() {
		storageDir = cfg.StorageDir
	}

	r := newRouter(routerDeps{
		cfg:        cfg,
		db:         db,
		sm:         sessionManager,
		tracker:    tracker,
		storage:    st,
		storageDir: storageDir,
		services:   svc,
		renderer: render.New(render.Config{
			SessionManager: sessionManager,
			IsDev:          cfg.IsDevelopment(),
		}),
		pages:           pages,
		loginProtection: newLoginProtection(ctx),
		version:         appVersion,
	})

	// Create server with appropriate timeouts
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // Longer to allow for large uploads and slow connections
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB max header size
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", appVersion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// newScheduler registers the maintenance jobs without starting them.
func newScheduler(cfg *config.Config, tracker *session.Tracker, logger *slog.Logger) (*scheduler.Scheduler, error) {
	sched := scheduler.New(logger)
	if err := sched.AddSessionSweep(tracker, cfg.SessionSweepSchedule, func(n int64) {
		metrics.SessionsSwept.Add(float64(n))
	}); err != nil {
		return nil, fmt.Errorf("scheduling session sweep: %w", err)
	}
	return sched, nil
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	if cfg.UseMinIO() {
		m, err := storage.NewMinIO(ctx, storage.MinIOConfig{
			Endpoint:        cfg.MinIOEndpoint,
			AccessKeyID:     cfg.MinIOAccessKey,
			SecretAccessKey: cfg.MinIOSecretKey,
			Bucket:          cfg.MinIOBucket,
			UseSSL:          cfg.MinIOUseSSL,
			PublicURL:       cfg.MinIOPublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to object storage: %w", err)
		}
		slog.Info("storage initialized", "driver", config.StorageMinIO, "bucket", cfg.MinIOBucket)
		return m, nil
	}

	d, err := storage.NewDisk(cfg.StorageDir, cfg.StorageURL)
	if err != nil {
		return nil, fmt.Errorf("initializing disk storage: %w", err)
	}
	slog.Info("storage initialized", "driver", config.StorageDisk, "dir", cfg.StorageDir)
	return d, nil
}

// openSender returns the notification transport and a function releasing it.
func openSender(cfg *config.Config, logger *slog.Logger) (notify.Sender, func(), error) {
	switch cfg.NotifyDriver {
	case config.NotifySMTP:
		return notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}), func() {}, nil
	case config.NotifyAMQP:
		s, err := notify.NewAMQPSender(cfg.AMQPURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to message broker: %w", err)
		}
		return s, func() {
			if err := s.Close(); err != nil {
				slog.Error("error closing broker connection", "error", err)
			}
		}, nil
	default:
		return notify.SenderFunc(func(_ context.Context, msg notify.Message) error {
			logger.Info("notification", "kind", msg.Kind, "to", msg.To, "subject", msg.Subject)
			return nil
		}), func() {}, nil
	}
}

// requestLogger is chi's request logger writing through slog.
func requestLogger() func(http.Handler) http.Handler {
	return chimw.RequestLogger(&chimw.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(slog.Default().Handler(), slog.LevelInfo),
		NoColor: true,
	})
}

// mount registers h for GET and HEAD.
func mount(r chi.Router, pattern string, h http.HandlerFunc) {
	r.Get(pattern, h)
	r.Head(pattern, h)
}
