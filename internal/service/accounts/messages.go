package accounts

import (
	"github.com/oggyb/hwreports/internal/db"
	"github.com/oggyb/hwreports/internal/identity"
	"github.com/oggyb/hwreports/internal/storage"
)

type SessionResponse struct {
	Session *identity.Session `json:"session"`
}

type StartOAuthRequest struct {
	Provider string `json:"provider"`
	Redirect string `json:"redirect"`
}

type StartOAuthResponse struct {
	URL string `json:"url"`
}

type CompleteOAuthRequest struct {
	Provider string `json:"provider"`
	State    string `json:"state"`
	Code     string `json:"code"`
}

type CompleteOAuthResponse struct {
	Session  *identity.Session `json:"session"`
	Redirect string            `json:"redirect"`
}

type GetSessionRequest struct{}

type SignOutRequest struct{}

type SignOutResponse struct{}

type UpdateUserRequest struct {
	Email           *string `json:"email,omitempty"`
	Password        *string `json:"password,omitempty"`
	PasswordConfirm *string `json:"password_confirm,omitempty"`
}

// GetProfileRequest reads the caller's profile when UserID is empty.
type GetProfileRequest struct {
	UserID string `json:"user_id"`
}

// UpdateProfileRequest changes only the fields that are set.
type UpdateProfileRequest struct {
	Nickname *string        `json:"nickname,omitempty"`
	Bio      *string        `json:"bio,omitempty"`
	Avatar   *storage.Upload `json:"avatar,omitempty"`
}

type Profile struct {
	UserID      string `json:"user_id"`
	Nickname    string `json:"nickname"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url"`
	IsSupporter bool   `json:"is_supporter"`
}

func toProfile(userID string, p *db.Profile) *Profile {
	out := &Profile{UserID: userID}
	if p != nil {
		out.Nickname = p.Nickname
		out.Bio = p.Bio
		out.AvatarURL = p.AvatarURL
		out.IsSupporter = p.IsSupporter
	}
	return out
}
