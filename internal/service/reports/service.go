package reports

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/oggyb/hwreports/internal/app"
	"github.com/oggyb/hwreports/internal/db"
	"github.com/oggyb/hwreports/internal/engagement"
	svcErr "github.com/oggyb/hwreports/internal/errors"
	"github.com/oggyb/hwreports/internal/hardware"
	"github.com/oggyb/hwreports/internal/lifecycle"
	"github.com/oggyb/hwreports/internal/logger"
	"github.com/oggyb/hwreports/internal/repository"
	"github.com/oggyb/hwreports/internal/server"
	"github.com/oggyb/hwreports/internal/storage"
	"github.com/oggyb/hwreports/internal/validation"
	"github.com/oggyb/hwreports/internal/viewer"
)

const (
	maxPageSize        = 100
	minWatchInterval   = 100 * time.Millisecond
	defaultWatchPeriod = time.Second
	recentStatsWindow  = 7 * 24 * time.Hour
)

// Service implements the Report gRPC API.
// It contains the business logic on top of repository, lifecycle and
// engagement layers.
type Service struct {
	appCtx      *app.AppContext
	reportRepo  *repository.ReportRepository
	profileRepo *repository.ProfileRepository
}

// NewReportService creates a new Report service with dependencies from AppContext.
func NewReportService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:      appCtx,
		reportRepo:  repository.NewReportRepository(appCtx.DB),
		profileRepo: repository.NewProfileRepository(appCtx.DB),
	}
}

func (s *Service) log(ctx context.Context) *slog.Logger {
	return logger.FromContext(ctx, s.appCtx.Logger)
}

// SubmitReport validates and stores a new report owned by the caller.
//
// Behavior:
//   - Every invalid field is reported at once, images included.
//   - Images are uploaded before the insert; a failed upload aborts the
//     submission and no report is created.
//   - created_at comes from the service clock.
//   - The cached popularity ranking is invalidated.
func (s *Service) SubmitReport(ctx context.Context, req *SubmitReportRequest) (*SubmitReportResponse, error) {
	v, err := viewer.Require(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	in := req.ReportInput
	images, err := s.validate(&in, req.Images)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	now := s.appCtx.Now()
	urls, err := s.upload(ctx, images, now)
	if err != nil {
		s.log(ctx).Error("image upload failed", "err", err)
		return nil, svcErr.Map(err)
	}

	report := &db.Report{UserID: v.UserID(), Images: urls, CreatedAt: now, UpdatedAt: now}
	applyInput(report, in)
	if err := s.reportRepo.Create(ctx, report); err != nil {
		s.log(ctx).Error("create report failed", "err", err)
		return nil, svcErr.Map(err)
	}
	s.appCtx.Engagement.InvalidatePopular(ctx)

	s.log(ctx).Info("report submitted", "report_id", report.ID, "game", report.Game, "images", len(urls))

	return &SubmitReportResponse{
		Report: toReport(report, s.author(ctx, v.UserID())),
		Edit:   toEditStatus(s.appCtx.Lifecycle.Evaluate(subject(report), v.UserID())),
	}, nil
}

// GetReport returns one report and counts the view for the caller's
// environment.
func (s *Service) GetReport(ctx context.Context, req *GetReportRequest) (*GetReportResponse, error) {
	report, err := s.reportRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	v := viewer.FromContext(ctx)
	report.Views = s.appCtx.Engagement.RecordView(ctx, v.EnvironmentID, report)

	return &GetReportResponse{
		Report: toReport(report, s.author(ctx, report.UserID)),
		Liked:  s.appCtx.Engagement.Liked(ctx, v.EnvironmentID, report.ID),
		Edit:   toEditStatus(s.appCtx.Lifecycle.Evaluate(subject(report), v.UserID())),
	}, nil
}

// ListReports returns reports newest first, filtered by game substring and
// owner. Authors are fetched in one batch.
func (s *Service) ListReports(ctx context.Context, req *ListReportsRequest) (*ListReportsResponse, error) {
	limit := req.PageSize
	if limit <= 0 {
		limit = s.appCtx.Config.Reports.PageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	rows, next, err := s.reportRepo.List(ctx, repository.ReportFilter{Game: req.Game, UserID: req.UserID}, req.PageToken, limit)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	reports, err := s.withAuthors(ctx, rows)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	s.log(ctx).Debug("ListReports result", "count", len(reports), "has_next", next != nil)
	return &ListReportsResponse{Reports: reports, NextPageToken: next}, nil
}

// EditReport revises a report while its edit window is open.
//
// Behavior:
//   - Only the owner may edit, and only while the report is Fresh.
//   - Input is validated with the submission rules.
//   - New images are uploaded, removed ones dropped, and the result written
//     in a single update that re-checks owner and window in the database.
//   - created_at is never written.
func (s *Service) EditReport(ctx context.Context, req *EditReportRequest) (*EditReportResponse, error) {
	v, err := viewer.Require(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	current, err := s.reportRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if err := s.appCtx.Lifecycle.Authorize(subject(current), v.UserID()); err != nil {
		return nil, svcErr.Map(err)
	}

	in := req.ReportInput
	images, err := s.validate(&in, req.NewImages)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	now := s.appCtx.Now()
	uploaded, err := s.upload(ctx, images, now)
	if err != nil {
		s.log(ctx).Error("image upload failed", "report_id", current.ID, "err", err)
		return nil, svcErr.Map(err)
	}

	update := &db.Report{
		ID:     current.ID,
		UserID: v.UserID(),
		Images: lifecycle.MergeImages(current.Images, req.RemoveImages, uploaded),
	}
	applyInput(update, in)
	if err := s.reportRepo.UpdateWithinWindow(ctx, update, s.appCtx.Lifecycle.Cutoff(now)); err != nil {
		return nil, svcErr.Map(err)
	}
	if in.Game != current.Game {
		s.appCtx.Engagement.InvalidatePopular(ctx)
	}

	updated, err := s.reportRepo.GetByID(ctx, current.ID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	s.log(ctx).Info("report edited", "report_id", updated.ID)
	return &EditReportResponse{
		Report: toReport(updated, s.author(ctx, updated.UserID)),
		Edit:   toEditStatus(s.appCtx.Lifecycle.Evaluate(subject(updated), v.UserID())),
	}, nil
}

// GetEditStatus tells the caller whether they can still edit the report.
func (s *Service) GetEditStatus(ctx context.Context, req *GetEditStatusRequest) (*EditStatus, error) {
	report, err := s.reportRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	st := toEditStatus(s.appCtx.Lifecycle.Evaluate(subject(report), viewer.FromContext(ctx).UserID()))
	return &st, nil
}

// WatchEditWindow streams the edit status until the window closes or the
// client goes away.
func (s *Service) WatchEditWindow(req *WatchEditWindowRequest, stream server.Sender[EditStatus]) error {
	ctx := stream.Context()
	report, err := s.reportRepo.GetByID(ctx, req.ID)
	if err != nil {
		return svcErr.Map(err)
	}

	interval := defaultWatchPeriod
	if req.IntervalMS > 0 {
		interval = max(time.Duration(req.IntervalMS)*time.Millisecond, minWatchInterval)
	}

	for st := range s.appCtx.Lifecycle.Watch(ctx, subject(report), viewer.FromContext(ctx).UserID(), interval) {
		msg := toEditStatus(st)
		if err := stream.Send(&msg); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return svcErr.Map(err)
	}
	return nil
}

// ToggleLike flips the like of the caller's environment on a report.
func (s *Service) ToggleLike(ctx context.Context, req *ToggleLikeRequest) (*engagement.LikeState, error) {
	st, err := s.appCtx.Engagement.ToggleLike(ctx, viewer.FromContext(ctx), req.ID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &st, nil
}

// PopularGames ranks games by reports submitted in the last 30 days.
func (s *Service) PopularGames(ctx context.Context, _ *PopularGamesRequest) (*PopularGamesResponse, error) {
	games, err := s.appCtx.Engagement.PopularGames(ctx)
	if err != nil {
		s.log(ctx).Error("PopularGames failed", "err", err)
		return nil, svcErr.Map(err)
	}
	return &PopularGamesResponse{Games: games}, nil
}

func (s *Service) HardwareOptions(context.Context, *HardwareOptionsRequest) (*hardware.Options, error) {
	opts := s.appCtx.Hardware
	return &opts, nil
}

func (s *Service) SuggestPreset(_ context.Context, req *SuggestPresetRequest) (*SuggestPresetResponse, error) {
	preset := hardware.SuggestPreset(req.GPU)
	return &SuggestPresetResponse{Preset: preset, Known: s.appCtx.Hardware.IsKnownPreset(preset)}, nil
}

// Dashboard returns the caller's own reports and their aggregate stats.
func (s *Service) Dashboard(ctx context.Context, _ *DashboardRequest) (*DashboardResponse, error) {
	v, err := viewer.Require(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	uid := v.UserID()

	rows, _, err := s.reportRepo.List(ctx, repository.ReportFilter{UserID: uid}, nil, s.appCtx.Config.Reports.DashboardLimit)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	stats, err := s.reportRepo.StatsForUser(ctx, uid, s.appCtx.Now().Add(-recentStatsWindow))
	if err != nil {
		return nil, svcErr.Map(err)
	}

	author := s.author(ctx, uid)
	reports := make([]Report, 0, len(rows))
	for i := range rows {
		reports = append(reports, toReport(&rows[i], author))
	}

	return &DashboardResponse{
		Author:  author,
		Reports: reports,
		Stats: DashboardStats{
			TotalReports:  stats.Total,
			AvgFPS:        int64(math.Round(stats.AvgFPS)),
			TotalLikes:    stats.Likes,
			TotalViews:    stats.Views,
			RecentReports: stats.Recent,
		},
	}, nil
}

// validate normalizes in and checks it together with the uploads. Image
// problems are reported under "images".
func (s *Service) validate(in *validation.ReportInput, uploads []storage.Upload) ([]storage.Image, error) {
	fields := validation.FieldErrors{}
	if err := validation.Report(in); err != nil {
		fe, ok := validation.AsFieldErrors(err)
		if !ok {
			return nil, err
		}
		fields = fe
	}

	images := make([]storage.Image, 0, len(uploads))
	for i, up := range uploads {
		img, msg := storage.CheckImage(up.Data, s.appCtx.Config.Storage.MaxImageBytes)
		if msg != "" {
			fields.Add("images", fmt.Sprintf("image %d: %s", i+1, msg))
			continue
		}
		images = append(images, img)
	}
	return images, fields.Err()
}

func (s *Service) upload(ctx context.Context, images []storage.Image, now time.Time) ([]string, error) {
	urls := make([]string, 0, len(images))
	for _, img := range images {
		path := storage.ReportImagePath(now, img.Ext)
		if err := s.appCtx.Storage.Upload(ctx, storage.BucketImages, path, img.Data); err != nil {
			return nil, fmt.Errorf("upload %s: %w", path, err)
		}
		urls = append(urls, s.appCtx.Storage.PublicURL(storage.BucketImages, path))
	}
	return urls, nil
}

// author loads the profile of userID. A missing profile yields a bare author.
func (s *Service) author(ctx context.Context, userID string) Author {
	p, err := s.profileRepo.Get(ctx, userID)
	if err != nil {
		if !repository.IsNotFound(err) {
			s.log(ctx).Warn("load author profile failed", "user_id", userID, "err", err)
		}
		return toAuthor(userID, nil)
	}
	return toAuthor(userID, p)
}

func (s *Service) withAuthors(ctx context.Context, rows []db.Report) ([]Report, error) {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}
	profiles, err := s.profileRepo.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load authors: %w", err)
	}

	out := make([]Report, 0, len(rows))
	for i := range rows {
		var p *db.Profile
		if prof, ok := profiles[rows[i].UserID]; ok {
			p = &prof
		}
		out = append(out, toReport(&rows[i], toAuthor(rows[i].UserID, p)))
	}
	return out, nil
}

func subject(r *db.Report) lifecycle.Subject {
	return lifecycle.Subject{OwnerID: r.UserID, CreatedAt: r.CreatedAt}
}
