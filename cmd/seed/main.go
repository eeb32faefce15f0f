package main

import (
	"os"

	"github.com/oggyb/hwreports/internal/config"
	"github.com/oggyb/hwreports/internal/db"
	"github.com/oggyb/hwreports/internal/hardware"
	"github.com/oggyb/hwreports/internal/logger"
)

func main() {
	// Load configuration
	cfg, err := config.New()
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg, log)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	hw, err := hardware.Load(cfg.Reports.HardwareOptions)
	if err != nil {
		log.Error("failed to load hardware options", "err", err)
		os.Exit(1)
	}

	if err := db.SeedTestData(database, hw, log); err != nil {
		log.Error("failed to seed", "err", err)
		os.Exit(1)
	}

	log.Info("seeding completed")
}
