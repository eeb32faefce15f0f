package db

import (
	"fmt"
	"log/slog"
	"time"

	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/hwreports/internal/config"
)

// NewDB initializes the database connection selected by cfg.DB.Driver.
// SQL logs go through the given slog logger.
func NewDB(cfg *config.Config, log *slog.Logger) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch cfg.DB.Driver {
	case "mysql", "":
		dial = mysql.Open(cfg.DB.DSN)
	case "sqlite":
		dial = sqlite.Open(cfg.DB.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DB.Driver)
	}

	opts := []slogGorm.Option{slogGorm.WithHandler(log.Handler())}
	if cfg.Log.Level == "debug" {
		opts = append(opts, slogGorm.WithTraceAll()) // log SQL queries
	}

	db, err := gorm.Open(dial, &gorm.Config{
		Logger:                 slogGorm.New(opts...),
		NowFunc:                func() time.Time { return time.Now().UTC() },
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if cfg.DB.Driver == "sqlite" {
		if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
			return nil, fmt.Errorf("failed to set sqlite pragma: %w", err)
		}
	}

	// AutoMigrate ensures schema is in sync with models.
	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
