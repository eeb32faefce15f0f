package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/hwreports/internal/db"
	"github.com/oggyb/hwreports/internal/lifecycle"
	"github.com/oggyb/hwreports/internal/utils/pagination"
)

// editableColumns are the only columns an edit may write. created_at, the
// owner and the counters are never part of it.
var editableColumns = []string{
	"game", "cpu", "gpu", "ram_gb", "resolution", "preset", "tweaks",
	"fps_avg", "fps_1low", "stability_note", "images", "updated_at",
}

// ReportFilter narrows List. Zero values match everything.
type ReportFilter struct {
	// Game matches as a case-insensitive substring.
	Game   string
	UserID string
}

// ReportStats aggregates one user's reports for the dashboard.
type ReportStats struct {
	Total  int64   `gorm:"column:total"`
	AvgFPS float64 `gorm:"column:avg_fps"`
	Likes  int64   `gorm:"column:likes"`
	Views  int64   `gorm:"column:views"`
	Recent int64   `gorm:"column:recent"`
}

// ReportRepository provides data access methods for the Report model.
type ReportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new repository bound to the given DB connection.
func NewReportRepository(database *gorm.DB) *ReportRepository {
	return &ReportRepository{db: database}
}

// Create inserts a report. ID and timestamps are assigned on insert.
func (r *ReportRepository) Create(ctx context.Context, report *db.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

// GetByID returns gorm.ErrRecordNotFound when no report has the id.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*db.Report, error) {
	var report db.Report
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// List returns reports newest first.
//
// Behavior:
//   - Ordered by created_at DESC, id DESC.
//   - Supports cursor-based pagination via paginationToken.
//   - The next token is nil on the last page.
//
// Example:
//
//	repo.List(ctx, ReportFilter{Game: "elden"}, nil, 20)
func (r *ReportRepository) List(
	ctx context.Context,
	filter ReportFilter,
	paginationToken *string,
	limit int,
) ([]db.Report, *string, error) {
	var reports []db.Report

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Model(&db.Report{}).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	if game := strings.TrimSpace(filter.Game); game != "" {
		query = query.Where("LOWER(game) LIKE ?", "%"+strings.ToLower(game)+"%")
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}

	// apply cursor
	if !cursor.IsZero() {
		ts := cursor.CreatedAt()
		query = query.Where(
			"(created_at < ? OR (created_at = ? AND id < ?))",
			ts, ts, cursor.ID,
		)
	}

	if err := query.Find(&reports).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(reports) > limit {
		last := reports[limit-1]
		token, _ := pagination.Encode(pagination.NewCursor(last.ID, last.CreatedAt))
		nextToken = &token
		reports = reports[:limit]
	}

	return reports, nextToken, nil
}

// UpdateWithinWindow writes the editable columns of update to the report
// with update.ID, but only while the report belongs to update.UserID and was
// created after cutoff.
//
// Behavior:
//   - One UPDATE guarded by id, owner and created_at > cutoff.
//   - When nothing matched, the cause is resolved to gorm.ErrRecordNotFound,
//     lifecycle.ErrNotOwner or lifecycle.ErrLocked.
func (r *ReportRepository) UpdateWithinWindow(
	ctx context.Context,
	update *db.Report,
	cutoff time.Time,
) error {
	res := r.db.WithContext(ctx).
		Model(&db.Report{}).
		Where("id = ? AND user_id = ? AND created_at > ?", update.ID, update.UserID, cutoff.UTC()).
		Select(editableColumns).
		Updates(update)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	current, err := r.GetByID(ctx, update.ID)
	if err != nil {
		return err
	}
	if current.UserID != update.UserID {
		return lifecycle.ErrNotOwner
	}
	return lifecycle.ErrLocked
}

// AdjustLikes adds delta to the like counter and returns the new value.
// The counter never drops below zero.
func (r *ReportRepository) AdjustLikes(ctx context.Context, id string, delta int64) (int64, error) {
	return r.adjust(ctx, id, "likes", delta)
}

// IncrementViews adds one view and returns the new count.
func (r *ReportRepository) IncrementViews(ctx context.Context, id string) (int64, error) {
	return r.adjust(ctx, id, "views", 1)
}

func (r *ReportRepository) adjust(ctx context.Context, id, column string, delta int64) (int64, error) {
	err := r.db.WithContext(ctx).
		Model(&db.Report{}).
		Where("id = ? AND "+column+" + ? >= 0", id, delta).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
	if err != nil {
		return 0, err
	}

	var values []int64
	err = r.db.WithContext(ctx).
		Model(&db.Report{}).
		Where("id = ?", id).
		Pluck(column, &values).Error
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return values[0], nil
}

// GamesSince returns the game of every report created at or after since,
// oldest first. Ties on created_at are broken by id.
func (r *ReportRepository) GamesSince(ctx context.Context, since time.Time) ([]string, error) {
	var games []string
	err := r.db.WithContext(ctx).
		Model(&db.Report{}).
		Where("created_at >= ?", since.UTC()).
		Order("created_at ASC, id ASC").
		Pluck("game", &games).Error
	return games, err
}

// StatsForUser aggregates the user's reports. Recent counts reports created
// at or after recentSince.
func (r *ReportRepository) StatsForUser(ctx context.Context, userID string, recentSince time.Time) (ReportStats, error) {
	var stats ReportStats
	err := r.db.WithContext(ctx).
		Model(&db.Report{}).
		Select(`COUNT(*) AS total,
			COALESCE(AVG(fps_avg), 0) AS avg_fps,
			COALESCE(SUM(likes), 0) AS likes,
			COALESCE(SUM(views), 0) AS views,
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS recent`, recentSince.UTC()).
		Where("user_id = ?", userID).
		Scan(&stats).Error
	if err != nil {
		return ReportStats{}, err
	}
	return stats, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
