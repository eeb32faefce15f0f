package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oggyb/hwreports/internal/app"
	"github.com/oggyb/hwreports/internal/cache"
	"github.com/oggyb/hwreports/internal/config"
	"github.com/oggyb/hwreports/internal/db"
	"github.com/oggyb/hwreports/internal/hardware"
	"github.com/oggyb/hwreports/internal/identity"
	"github.com/oggyb/hwreports/internal/logger"
	"github.com/oggyb/hwreports/internal/server"
	"github.com/oggyb/hwreports/internal/service/accounts"
	"github.com/oggyb/hwreports/internal/service/reports"
	"github.com/oggyb/hwreports/internal/storage"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg, log)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	hw, err := hardware.Load(cfg.Reports.HardwareOptions)
	if err != nil {
		log.Error("failed to load hardware options", "path", cfg.Reports.HardwareOptions, "err", err)
		return
	}

	store := storage.NewDiskStore(cfg.Storage.Root, cfg.Storage.PublicURL)
	appCtx := app.New(cfg, database, redisCache, log, store, hw, nil)

	appCtx.Identity.OnSessionChange(func(e identity.Event) {
		log.Info("session changed", "event", e.Type, "user_id", e.Session.UserID)
	})

	if cfg.IsDevelopment() {
		if err := db.SeedTestData(database, hw, log); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	grpcServer := server.NewGRPCServer(log, appCtx.Identity,
		accounts.NewRegistrar(appCtx),
		reports.NewRegistrar(appCtx),
	)

	httpServer := server.NewHTTPServer(cfg, server.NewHTTPHandler(cfg, log, map[string]server.HealthCheck{
		"redis": redisCache.Ping,
		"db": func(ctx context.Context) error {
			sqlDB, err := database.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}))

	go func() {
		log.Info("starting http server", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", "err", err)
		}
	}()

	go func() {
		addr := cfg.GRPC.Host + ":" + cfg.GRPC.Port
		log.Info("starting gRPC server", "addr", addr)
		if err := server.StartGRPCServer(cfg, grpcServer); err != nil {
			log.Error("failed to start gRPC server", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	if !server.StopGRPCServer(shutdownCtx, grpcServer) {
		log.Warn("graceful stop timed out, open streams were closed")
	}
}
