package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin/internal/apiclient"
	"github.com/noah-isme/academy-admin/internal/crud"
	"github.com/noah-isme/academy-admin/internal/handler"
	"github.com/noah-isme/academy-admin/internal/middleware"
	"github.com/noah-isme/academy-admin/internal/models"
	"github.com/noah-isme/academy-admin/internal/router"
	"github.com/noah-isme/academy-admin/internal/service"
	"github.com/noah-isme/academy-admin/internal/session"
	"github.com/noah-isme/academy-admin/internal/validation"
	"github.com/noah-isme/academy-admin/pkg/config"
	"github.com/noah-isme/academy-admin/pkg/jobs"
	"github.com/noah-isme/academy-admin/pkg/logger"
	"github.com/noah-isme/academy-admin/pkg/storage"
)

// @title Special Academy Admin Console
// @version 1.0.0
// @description Server-rendered admin console for the Special Academy content API
// @BasePath /
// @schemes http https

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("console stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	metrics := service.NewMetricsService()

	backends, err := openBackends(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer backends.Close()

	store := session.NewStore(backends.sessions, logr.Named("session"))
	api := apiclient.New(apiclient.Config{BaseURL: cfg.Upstream.BaseURL, Timeout: cfg.Upstream.Timeout}, logr.Named("upstream"), metrics)
	validator := validation.New()

	cache := service.NewCacheService(backends.cache, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)
	dashboard := service.NewDashboardService(service.DashboardServiceParams{
		Users:         service.CountOf[models.User](api.Users()),
		Categories:    service.CountOf[models.Category](api.Categories()),
		Subcategories: service.CountOf[models.Subcategory](api.Subcategories()),
		Items:         service.CountOf[models.Item](api.Items()),
		Activity:      api,
		Cache:         cache,
		Logger:        logr,
		Config:        service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})

	files, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		return fmt.Errorf("uploads dir: %w", err)
	}
	uploads := service.NewUploadService(
		files,
		storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL),
		metrics,
		logr.Named("uploads"),
		service.UploadConfig{MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes, AllowedMIMEs: cfg.Uploads.AllowedMIMEs},
		jobs.QueueConfig{Workers: cfg.Uploads.CleanupWorkers, MaxRetries: cfg.Uploads.CleanupRetries, RetryDelay: 2 * time.Second},
	)
	uploads.Start(ctx)
	defer uploads.Stop()

	inflight := crud.NewInflight()
	taxonomy := crud.NewTaxonomy(api.Categories(), api.Subcategories(), logr)
	users := crud.NewScreen(crud.Users(api.Users(), validator), inflight, logr)
	categories := crud.NewScreen(crud.Categories(api.Categories(), validator), inflight, logr)
	subcategories := crud.NewScreen(crud.Subcategories(api.Subcategories(), taxonomy, validator), inflight, logr)
	items := crud.NewScreen(crud.Items(api.Items(), taxonomy, validator), inflight, logr)

	users.Observe(invalidateCounts[models.User](dashboard))
	categories.Observe(invalidateCounts[models.Category](dashboard))
	subcategories.Observe(invalidateCounts[models.Subcategory](dashboard))
	items.Observe(invalidateCounts[models.Item](dashboard))
	items.Observe(func(_ context.Context, m crud.Mutation[models.Item]) {
		switch {
		case m.Action == crud.ActionDelete && m.Record != nil:
			uploads.ScheduleCleanup(*m.Record)
		case m.Action == crud.ActionUpdate && m.Previous != nil && m.Record != nil:
			uploads.ScheduleReplaced(*m.Previous, *m.Record)
		}
	})

	cookie := middleware.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure, MaxAge: cfg.Session.Retention}
	exports := service.NewExportService(nil, nil, logr)
	auth := service.NewAuthService(api, api.Users(), store, validator, logr.Named("auth"))

	engine, err := router.New(router.Options{
		Config:  cfg,
		Logger:  logr,
		Store:   store,
		Cookie:  cookie,
		Metrics: metrics,
	}, router.Handlers{
		Auth:        handler.NewAuthHandler(auth, cookie, logr),
		Dashboard:   handler.NewDashboardHandler(dashboard, store),
		Profile:     handler.NewProfileHandler(auth),
		Preferences: handler.NewPreferencesHandler(auth, cookie, logr),
		Uploads:     handler.NewUploadHandler(uploads, logr),
		Metrics:     handler.NewMetricsHandler(metrics, backends.checks),
		Entities: []router.EntityRoutes{
			handler.NewEntityHandler(users, store, exports, handler.EntityHandlerOptions{Fields: handler.UserFields, Logger: logr}),
			handler.NewEntityHandler(categories, store, exports, handler.EntityHandlerOptions{Fields: handler.CategoryFields, Logger: logr}),
			handler.NewEntityHandler(subcategories, store, exports, handler.EntityHandlerOptions{Fields: handler.SubcategoryFields, Logger: logr}),
			handler.NewEntityHandler(items, store, exports, handler.EntityHandlerOptions{Fields: handler.ItemFields, Upload: true, Logger: logr}),
		},
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return serve(ctx, srv, logr, cfg)
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, logr *zap.Logger, cfg *config.Config) error {
	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("upstream", cfg.Upstream.BaseURL),
			zap.String("session_backend", cfg.Session.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logr.Info("server stopped")
	return nil
}

// invalidateCounts drops cached dashboard counts whenever a record is created or deleted.
func invalidateCounts[T crud.Record](dashboard *service.DashboardService) func(context.Context, crud.Mutation[T]) {
	return func(ctx context.Context, m crud.Mutation[T]) {
		if m.Action == crud.ActionUpdate {
			return
		}
		dashboard.InvalidateCounts(ctx)
	}
}
