package validation

import "strings"

// ReportInput holds the editable fields of a report. Submission and revision
// share these rules.
type ReportInput struct {
	Game          string  `json:"game" validate:"required,max=200"`
	CPU           string  `json:"cpu" validate:"required,max=200"`
	GPU           string  `json:"gpu" validate:"required,max=200"`
	RAMGB         int     `json:"ram_gb" validate:"gte=4,lte=256"`
	Resolution    string  `json:"resolution" validate:"required,max=32"`
	Preset        string  `json:"preset" validate:"required,max=64"`
	Tweaks        string  `json:"tweaks" validate:"max=2000"`
	FPSAvg        float64 `json:"fps_avg" validate:"gt=0"`
	FPS1Low       float64 `json:"fps_1low" validate:"gt=0,ltefield=FPSAvg"`
	StabilityNote string  `json:"stability_note" validate:"max=2000"`
}

// Normalize trims surrounding whitespace from the text fields.
func (r *ReportInput) Normalize() {
	r.Game = strings.TrimSpace(r.Game)
	r.CPU = strings.TrimSpace(r.CPU)
	r.GPU = strings.TrimSpace(r.GPU)
	r.Resolution = strings.TrimSpace(r.Resolution)
	r.Preset = strings.TrimSpace(r.Preset)
	r.Tweaks = strings.TrimSpace(r.Tweaks)
	r.StabilityNote = strings.TrimSpace(r.StabilityNote)
}

// Report normalizes and validates in.
func Report(in *ReportInput) error {
	in.Normalize()
	return Struct(in)
}

type ProfileInput struct {
	Nickname string `json:"nickname" validate:"max=64"`
	Bio      string `json:"bio" validate:"max=500"`
}

// Profile trims the nickname and validates in. The bio is kept verbatim.
func Profile(in *ProfileInput) error {
	in.Nickname = strings.TrimSpace(in.Nickname)
	return Struct(in)
}

type SignUpInput struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type PasswordChangeInput struct {
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"eqfield=Password"`
}

type EmailChangeInput struct {
	Email string `json:"email" validate:"required,email"`
}
