package app

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/hwreports/internal/cache"
	"github.com/oggyb/hwreports/internal/config"
	"github.com/oggyb/hwreports/internal/engagement"
	"github.com/oggyb/hwreports/internal/hardware"
	"github.com/oggyb/hwreports/internal/identity"
	"github.com/oggyb/hwreports/internal/lifecycle"
	"github.com/oggyb/hwreports/internal/repository"
	"github.com/oggyb/hwreports/internal/storage"
)

// AppContext holds shared dependencies (DB, Redis, Logger, etc.)
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Storage    storage.ObjectStore
	Hardware   hardware.Options

	Identity   *identity.Service
	Lifecycle  *lifecycle.Engine
	Engagement *engagement.Tracker

	// Now is the service clock. Report timestamps and the edit window use it.
	Now func() time.Time
}

// New creates a new AppContext and the domain services built on top of it.
// A nil now means time.Now in UTC.
func New(
	cfg *config.Config,
	db *gorm.DB,
	rdb *cache.RedisCache,
	logger *slog.Logger,
	store storage.ObjectStore,
	hw hardware.Options,
	now func() time.Time,
) *AppContext {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	identitySvc := identity.NewService(repository.NewAccountRepository(db), rdb, identity.Options{
		Issuer:     cfg.Auth.Issuer,
		Secret:     cfg.Auth.SecretKey,
		SessionTTL: cfg.Auth.SessionTTL,
		StateTTL:   cfg.Auth.OAuthStateTTL,
		Providers:  identity.ProvidersFromConfig(cfg.Auth),
		Now:        now,
		Logger:     logger,
	})

	tracker := engagement.NewTracker(repository.NewReportRepository(db), rdb, rdb, engagement.Options{
		PopularWindow: cfg.Reports.PopularWindow,
		CacheKey:      cache.PopularGamesKey,
		CacheTTL:      cfg.Reports.PopularCacheTTL,
		Now:           now,
		Logger:        logger,
	})

	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Storage:    store,
		Hardware:   hw,
		Identity:   identitySvc,
		Lifecycle:  lifecycle.NewEngine(cfg.Reports.EditWindow, now),
		Engagement: tracker,
		Now:        now,
	}
}
