// Package engagement counts likes and views on reports and ranks games by
// recent activity.
//
// Likes and views are deduplicated per client environment through markers,
// the way a browser would remember them in local storage. Counter writes are
// atomic increments in the database. A failed counter write never fails the
// request: it is logged, the caller sees the previous state, and the marker
// is left untouched so the next interaction retries. A failed marker write
// after a like count change reverts the count.
package engagement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oggyb/hwreports/internal/db"
	"github.com/oggyb/hwreports/internal/identity"
	"github.com/oggyb/hwreports/internal/logger"
	"github.com/oggyb/hwreports/internal/viewer"
)

// PopularWindow is how far back PopularGames looks.
const PopularWindow = 30 * 24 * time.Hour

var ErrNoEnvironment = errors.New("environment id is required")

type MarkerStore interface {
	HasMarker(ctx context.Context, envID, name string) (bool, error)
	SetMarker(ctx context.Context, envID, name string) error
	ClearMarker(ctx context.Context, envID, name string) error
}

// ReportStore is the slice of report persistence the tracker needs.
type ReportStore interface {
	GetByID(ctx context.Context, id string) (*db.Report, error)
	AdjustLikes(ctx context.Context, id string, delta int64) (int64, error)
	IncrementViews(ctx context.Context, id string) (int64, error)
	GamesSince(ctx context.Context, since time.Time) ([]string, error)
}

type RankingCache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type Options struct {
	PopularWindow time.Duration
	CacheKey      string
	CacheTTL      time.Duration
	Now           func() time.Time
	Logger        *slog.Logger
}

type Tracker struct {
	reports  ReportStore
	markers  MarkerStore
	ranking  RankingCache
	window   time.Duration
	cacheKey string
	cacheTTL time.Duration
	now      func() time.Time
	log      *slog.Logger
}

// NewTracker builds a tracker. ranking may be nil to disable caching.
func NewTracker(reports ReportStore, markers MarkerStore, ranking RankingCache, opts Options) *Tracker {
	if opts.PopularWindow <= 0 {
		opts.PopularWindow = PopularWindow
	}
	if opts.CacheKey == "" {
		opts.CacheKey = "popular:games"
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.L()
	}
	return &Tracker{
		reports:  reports,
		markers:  markers,
		ranking:  ranking,
		window:   opts.PopularWindow,
		cacheKey: opts.CacheKey,
		cacheTTL: opts.CacheTTL,
		now:      opts.Now,
		log:      opts.Logger.With("component", "engagement"),
	}
}

func LikeMarker(reportID string) string { return "report_like_" + reportID }
func ViewMarker(reportID string) string { return "report_view_" + reportID }

// LikeState is what the caller should display after a toggle.
type LikeState struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

// Liked reports whether envID has liked the report. An empty envID never has.
func (t *Tracker) Liked(ctx context.Context, envID, reportID string) bool {
	if envID == "" {
		return false
	}
	liked, err := t.markers.HasMarker(ctx, envID, LikeMarker(reportID))
	if err != nil {
		t.log.Warn("failed to read like marker", "report_id", reportID, "error", err)
		return false
	}
	return liked
}

// ToggleLike likes the report when the viewer's environment has not liked it
// yet, and unlikes it otherwise.
func (t *Tracker) ToggleLike(ctx context.Context, v viewer.Viewer, reportID string) (LikeState, error) {
	if !v.Authenticated() {
		return LikeState{}, identity.ErrUnauthenticated
	}
	if v.EnvironmentID == "" {
		return LikeState{}, ErrNoEnvironment
	}

	report, err := t.reports.GetByID(ctx, reportID)
	if err != nil {
		return LikeState{}, fmt.Errorf("load report: %w", err)
	}

	marker := LikeMarker(reportID)
	liked, err := t.markers.HasMarker(ctx, v.EnvironmentID, marker)
	if err != nil {
		return LikeState{}, fmt.Errorf("read like marker: %w", err)
	}
	previous := LikeState{Liked: liked, Likes: report.Likes}

	delta := int64(1)
	if liked {
		delta = -1
	}
	likes, err := t.reports.AdjustLikes(ctx, reportID, delta)
	if err != nil {
		t.log.Error("failed to update like count", "report_id", reportID, "delta", delta, "error", err)
		return previous, nil
	}

	if liked {
		err = t.markers.ClearMarker(ctx, v.EnvironmentID, marker)
	} else {
		err = t.markers.SetMarker(ctx, v.EnvironmentID, marker)
	}
	if err != nil {
		// keep the counter in step with the stored marker
		t.log.Error("failed to flip like marker", "report_id", reportID, "error", err)
		if _, undoErr := t.reports.AdjustLikes(ctx, reportID, -delta); undoErr != nil {
			t.log.Error("failed to revert like count", "report_id", reportID, "delta", -delta, "error", undoErr)
		}
		return previous, nil
	}

	return LikeState{Liked: !liked, Likes: likes}, nil
}

// RecordView counts one view of report per environment and returns the
// view count to display. Views without an environment are not counted.
func (t *Tracker) RecordView(ctx context.Context, envID string, report *db.Report) int64 {
	if envID == "" {
		return report.Views
	}

	marker := ViewMarker(report.ID)
	seen, err := t.markers.HasMarker(ctx, envID, marker)
	if err != nil {
		t.log.Warn("failed to read view marker", "report_id", report.ID, "error", err)
		return report.Views
	}
	if seen {
		return report.Views
	}

	views, err := t.reports.IncrementViews(ctx, report.ID)
	if err != nil {
		t.log.Error("failed to increment views", "report_id", report.ID, "error", err)
		return report.Views
	}
	if err := t.markers.SetMarker(ctx, envID, marker); err != nil {
		t.log.Error("failed to set view marker", "report_id", report.ID, "error", err)
	}
	return views
}
