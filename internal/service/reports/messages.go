package reports

import (
	"time"

	"github.com/oggyb/hwreports/internal/db"
	"github.com/oggyb/hwreports/internal/engagement"
	"github.com/oggyb/hwreports/internal/lifecycle"
	"github.com/oggyb/hwreports/internal/storage"
	"github.com/oggyb/hwreports/internal/validation"
)

type Author struct {
	UserID      string `json:"user_id"`
	Nickname    string `json:"nickname"`
	AvatarURL   string `json:"avatar_url"`
	IsSupporter bool   `json:"is_supporter"`
}

type Report struct {
	ID     string `json:"id"`
	Author Author `json:"author"`
	validation.ReportInput
	Images    []string  `json:"images"`
	Likes     int64     `json:"likes"`
	Views     int64     `json:"views"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type EditStatus struct {
	State            string `json:"state"`
	Editable         bool   `json:"editable"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	Countdown        string `json:"countdown"`
}

type SubmitReportRequest struct {
	validation.ReportInput
	Images []storage.Upload `json:"images"`
}

type SubmitReportResponse struct {
	Report Report     `json:"report"`
	Edit   EditStatus `json:"edit"`
}

type GetReportRequest struct {
	ID string `json:"id"`
}

type GetReportResponse struct {
	Report Report     `json:"report"`
	Liked  bool       `json:"liked"`
	Edit   EditStatus `json:"edit"`
}

type ListReportsRequest struct {
	Game      string  `json:"game"`
	UserID    string  `json:"user_id"`
	PageToken *string `json:"page_token,omitempty"`
	PageSize  int     `json:"page_size"`
}

type ListReportsResponse struct {
	Reports       []Report `json:"reports"`
	NextPageToken *string  `json:"next_page_token,omitempty"`
}

type EditReportRequest struct {
	ID string `json:"id"`
	validation.ReportInput
	RemoveImages []string         `json:"remove_images"`
	NewImages    []storage.Upload `json:"new_images"`
}

type EditReportResponse struct {
	Report Report     `json:"report"`
	Edit   EditStatus `json:"edit"`
}

type GetEditStatusRequest struct {
	ID string `json:"id"`
}

type WatchEditWindowRequest struct {
	ID         string `json:"id"`
	IntervalMS int64  `json:"interval_ms"`
}

type ToggleLikeRequest struct {
	ID string `json:"id"`
}

type PopularGamesRequest struct{}

type PopularGamesResponse struct {
	Games []engagement.GameRank `json:"games"`
}

type HardwareOptionsRequest struct{}

type SuggestPresetRequest struct {
	GPU string `json:"gpu"`
}

type SuggestPresetResponse struct {
	Preset string `json:"preset"`
	// Known is false when the preset is missing from the hardware options.
	Known bool `json:"known"`
}

type DashboardRequest struct{}

type DashboardStats struct {
	TotalReports  int64 `json:"total_reports"`
	AvgFPS        int64 `json:"avg_fps"`
	TotalLikes    int64 `json:"total_likes"`
	TotalViews    int64 `json:"total_views"`
	RecentReports int64 `json:"recent_reports"`
}

type DashboardResponse struct {
	Author  Author         `json:"author"`
	Reports []Report       `json:"reports"`
	Stats   DashboardStats `json:"stats"`
}

func toReport(r *db.Report, author Author) Report {
	images := r.Images
	if images == nil {
		images = []string{}
	}
	return Report{
		ID:     r.ID,
		Author: author,
		ReportInput: validation.ReportInput{
			Game:          r.Game,
			CPU:           r.CPU,
			GPU:           r.GPU,
			RAMGB:         r.RAMGB,
			Resolution:    r.Resolution,
			Preset:        r.Preset,
			Tweaks:        r.Tweaks,
			FPSAvg:        r.FPSAvg,
			FPS1Low:       r.FPS1Low,
			StabilityNote: r.StabilityNote,
		},
		Images:    images,
		Likes:     r.Likes,
		Views:     r.Views,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toAuthor(userID string, p *db.Profile) Author {
	a := Author{UserID: userID}
	if p != nil {
		a.Nickname = p.Nickname
		a.AvatarURL = p.AvatarURL
		a.IsSupporter = p.IsSupporter
	}
	return a
}

func toEditStatus(st lifecycle.Status) EditStatus {
	return EditStatus{
		State:            st.State.String(),
		Editable:         st.Editable(),
		RemainingSeconds: int64(st.Remaining / time.Second),
		Countdown:        st.Countdown(),
	}
}

// applyInput copies the editable fields of in onto r.
func applyInput(r *db.Report, in validation.ReportInput) {
	r.Game = in.Game
	r.CPU = in.CPU
	r.GPU = in.GPU
	r.RAMGB = in.RAMGB
	r.Resolution = in.Resolution
	r.Preset = in.Preset
	r.Tweaks = in.Tweaks
	r.FPSAvg = in.FPSAvg
	r.FPS1Low = in.FPS1Low
	r.StabilityNote = in.StabilityNote
}
