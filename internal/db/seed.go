package db

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oggyb/hwreports/internal/hardware"
)

// SeedPassword is the password of every seeded account.
const SeedPassword = "password"

var seedGames = []string{
	"Cyberpunk 2077", "The Witcher 3", "Fortnite", "Elden Ring", "Baldur's Gate 3",
	"Counter-Strike 2", "Red Dead Redemption 2", "Starfield", "Valorant", "Hades II",
}

// SeedTestData resets the database and populates it with demo accounts,
// profiles and reports.
//
// Behavior:
//  1. Clears existing data in `reports`, `profiles` and `accounts`.
//  2. Creates 20 accounts with hashed passwords, every 5th one a supporter.
//  3. Generates ~8 reports per account spread over the last 40 days, so the
//     30-day popularity window and the edit window both have something to show.
func SeedTestData(db *gorm.DB, opts hardware.Options, log *slog.Logger) error {
	f := gofakeit.New(time.Now().UnixNano())

	// --- Fresh start ---
	for _, table := range []string{"reports", "profiles", "accounts"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Info("cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	reportCount := 0
	for i := 1; i <= 20; i++ {
		account := Account{
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			Provider:     ProviderPassword,
			CreatedAt:    now.Add(-time.Duration(f.Number(41, 400)) * 24 * time.Hour),
		}
		if err := db.Create(&account).Error; err != nil {
			return fmt.Errorf("failed to seed account: %w", err)
		}

		profile := Profile{
			ID:          account.ID,
			Nickname:    f.Username(),
			Bio:         f.Sentence(12),
			IsSupporter: i%5 == 0,
		}
		if err := db.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}

		for j := 0; j < 8; j++ {
			report := fakeReport(f, opts, account.ID)
			report.CreatedAt = now.Add(-time.Duration(f.Number(1, 40*24*60)) * time.Minute)
			if i == 1 && j == 0 {
				// keep one report inside the edit window
				report.CreatedAt = now.Add(-10 * time.Minute)
			}
			if err := db.Create(&report).Error; err != nil {
				return fmt.Errorf("failed to seed report: %w", err)
			}
			reportCount++
		}
	}

	log.Info("seeded demo data", "accounts", 20, "reports", reportCount)
	return nil
}

func fakeReport(f *gofakeit.Faker, opts hardware.Options, userID string) Report {
	gpu := f.RandomString(opts.GPUs)
	preset := hardware.SuggestPreset(gpu)
	if preset == "" {
		preset = f.RandomString(opts.Presets)
	}

	avg := math.Round(f.Float64Range(30, 240))
	low := math.Round(avg * f.Float64Range(0.55, 0.9))

	return Report{
		UserID:        userID,
		Game:          f.RandomString(seedGames),
		CPU:           f.RandomString(opts.CPUs),
		GPU:           gpu,
		RAMGB:         []int{8, 16, 32, 64}[f.Number(0, 3)],
		Resolution:    f.RandomString(opts.Resolutions),
		Preset:        preset,
		Tweaks:        f.Sentence(6),
		FPSAvg:        avg,
		FPS1Low:       low,
		StabilityNote: f.Sentence(8),
		Images:        []string{},
		Likes:         int64(f.Number(0, 40)),
		Views:         int64(f.Number(40, 500)),
	}
}
