package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin/internal/handler"
	"github.com/noah-isme/academy-admin/internal/repository"
	"github.com/noah-isme/academy-admin/internal/service"
	"github.com/noah-isme/academy-admin/internal/session"
	"github.com/noah-isme/academy-admin/pkg/cache"
	"github.com/noah-isme/academy-admin/pkg/config"
	"github.com/noah-isme/academy-admin/pkg/database"
)

const sessionPurgeInterval = time.Hour

// backends holds the storage connections selected by configuration.
type backends struct {
	sessions session.Repository
	cache    service.CacheRepository
	checks   map[string]handler.ReadinessCheck

	redis  *redis.Client
	db     *sqlx.DB
	cancel context.CancelFunc
}

// openBackends connects the session store and, when enabled, the dashboard
// cache. Redis is mandatory only when it backs sessions.
func openBackends(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*backends, error) {
	b := &backends{checks: map[string]handler.ReadinessCheck{}}

	if cfg.Session.Backend == config.SessionBackendRedis || cfg.Dashboard.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		switch {
		case err == nil:
			b.redis = client
			b.checks["redis"] = cache.Check(client)
			b.cache = repository.NewCacheRepository(client, "academy")
		case cfg.Session.Backend == config.SessionBackendRedis:
			return nil, fmt.Errorf("session redis: %w", err)
		default:
			logr.Warn("redis unavailable, dashboard cache disabled", zap.String("addr", cache.Addr(cfg.Redis)), zap.Error(err))
		}
	}

	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		b.sessions = repository.NewRedisSessionRepository(b.redis, cfg.Session.Retention)
	case config.SessionBackendPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("session postgres: %w", err)
		}
		b.db = db
		b.checks["postgres"] = database.Check(db)

		repo := repository.NewSQLSessionRepository(db, cfg.Session.Retention)
		if err := repo.EnsureSchema(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("session schema: %w", err)
		}
		b.sessions = repo

		purgeCtx, cancel := context.WithCancel(ctx)
		b.cancel = cancel
		go purgeSessions(purgeCtx, repo, logr)
	case config.SessionBackendMemory:
		b.sessions = repository.NewMemorySessionRepository(cfg.Session.MemoryCapacity, cfg.Session.Retention)
		logr.Warn("sessions are kept in memory and lost on restart")
	default:
		b.Close()
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}

	return b, nil
}

// Close releases every connection.
func (b *backends) Close() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

func purgeSessions(ctx context.Context, repo *repository.SQLSessionRepository, logr *zap.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := repo.PurgeExpired(ctx)
			if err != nil {
				logr.Warn("session purge failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logr.Info("expired sessions purged", zap.Int64("removed", removed))
			}
		}
	}
}
