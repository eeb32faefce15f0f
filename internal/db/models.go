package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Provider values for Account.Provider.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
	ProviderGitHub   = "github"
)

// Account holds identity credentials. OAuth-only accounts have no password hash.
type Account struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Email        string    `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string    `gorm:"size:255"`
	Provider     string    `gorm:"size:16;not null;default:password"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (a *Account) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Profile is one-to-one with Account and shares its ID.
// Rows are created lazily by the first upsert.
type Profile struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Nickname    string    `gorm:"size:64"`
	Bio         string    `gorm:"size:2000"`
	AvatarURL   string    `gorm:"size:512"`
	IsSupporter bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// Report is a hardware compatibility report.
//
// Indexes:
//   - idx_reports_created_id(created_at DESC, id DESC)
//     Serves the newest-first listing and its cursor.
//   - idx_reports_user_created(user_id, created_at DESC)
//     Serves the dashboard and the owner-guarded edit.
//
// CreatedAt anchors the edit window and is never part of an update.
type Report struct {
	ID            string    `gorm:"primaryKey;size:36;index:idx_reports_created_id,priority:2,sort:desc"`
	UserID        string    `gorm:"size:36;not null;index:idx_reports_user_created,priority:1"`
	Game          string    `gorm:"size:200;not null"`
	CPU           string    `gorm:"column:cpu;size:200;not null"`
	GPU           string    `gorm:"column:gpu;size:200;not null"`
	RAMGB         int       `gorm:"column:ram_gb;not null"`
	Resolution    string    `gorm:"size:32;not null"`
	Preset        string    `gorm:"size:64;not null"`
	Tweaks        string    `gorm:"type:text"`
	FPSAvg        float64   `gorm:"column:fps_avg;not null"`
	FPS1Low       float64   `gorm:"column:fps_1low;not null"`
	StabilityNote string    `gorm:"type:text"`
	Images        []string  `gorm:"type:text;serializer:json"`
	Likes         int64     `gorm:"not null;default:0"`
	Views         int64     `gorm:"not null;default:0"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index:idx_reports_created_id,priority:1,sort:desc;index:idx_reports_user_created,priority:2,sort:desc"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (r *Report) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Models lists every table managed by AutoMigrate.
func Models() []any {
	return []any{&Account{}, &Profile{}, &Report{}}
}
