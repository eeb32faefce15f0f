package accounts

import (
	"context"
	"log/slog"

	"github.com/oggyb/hwreports/internal/app"
	"github.com/oggyb/hwreports/internal/db"
	svcErr "github.com/oggyb/hwreports/internal/errors"
	"github.com/oggyb/hwreports/internal/identity"
	"github.com/oggyb/hwreports/internal/logger"
	"github.com/oggyb/hwreports/internal/repository"
	"github.com/oggyb/hwreports/internal/storage"
	"github.com/oggyb/hwreports/internal/validation"
	"github.com/oggyb/hwreports/internal/viewer"
)

// Service implements the Account gRPC API on top of the identity service
// and the profile repository.
type Service struct {
	appCtx      *app.AppContext
	profileRepo *repository.ProfileRepository
}

func NewAccountService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:      appCtx,
		profileRepo: repository.NewProfileRepository(appCtx.DB),
	}
}

func (s *Service) log(ctx context.Context) *slog.Logger {
	return logger.FromContext(ctx, s.appCtx.Logger)
}

func (s *Service) SignUp(ctx context.Context, req *validation.SignUpInput) (*SessionResponse, error) {
	sess, err := s.appCtx.Identity.SignUp(ctx, *req)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	s.log(ctx).Info("account created", "user_id", sess.UserID)
	return &SessionResponse{Session: sess}, nil
}

func (s *Service) SignIn(ctx context.Context, req *validation.SignInInput) (*SessionResponse, error) {
	sess, err := s.appCtx.Identity.SignIn(ctx, *req)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &SessionResponse{Session: sess}, nil
}

// StartOAuth returns the provider consent URL for the client to open.
func (s *Service) StartOAuth(ctx context.Context, req *StartOAuthRequest) (*StartOAuthResponse, error) {
	url, err := s.appCtx.Identity.SignInWithOAuth(ctx, req.Provider, req.Redirect)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &StartOAuthResponse{URL: url}, nil
}

// CompleteOAuth redeems the provider callback.
func (s *Service) CompleteOAuth(ctx context.Context, req *CompleteOAuthRequest) (*CompleteOAuthResponse, error) {
	sess, redirect, err := s.appCtx.Identity.CompleteOAuth(ctx, req.Provider, req.State, req.Code)
	if err != nil {
		s.log(ctx).Warn("oauth callback rejected", "provider", req.Provider, "err", err)
		return nil, svcErr.Map(err)
	}
	return &CompleteOAuthResponse{Session: sess, Redirect: redirect}, nil
}

// GetSession echoes the session the caller authenticated with.
func (s *Service) GetSession(ctx context.Context, _ *GetSessionRequest) (*identity.Session, error) {
	v, err := viewer.Require(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return v.Session, nil
}

func (s *Service) SignOut(ctx context.Context, _ *SignOutRequest) (*SignOutResponse, error) {
	v, err := viewer.Require(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if err := s.appCtx.Identity.SignOut(ctx, v.Session); err != nil {
		s.log(ctx).Error("sign out failed", "user_id", v.UserID(), "err", err)
		return nil, svcErr.Map(err)
	}
	return &SignOutResponse{}, nil
}

// UpdateUser changes email and/or password and returns the replacement
// session.
func (s *Service) UpdateUser(ctx context.Context, req *UpdateUserRequest) (*SessionResponse, error) {
	v, err := viewer.Require(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	sess, err := s.appCtx.Identity.UpdateUser(ctx, v.Session, identity.UserUpdate{
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &SessionResponse{Session: sess}, nil
}

// GetProfile returns the profile of req.UserID, or of the caller when empty.
// Accounts that never saved a profile get an empty one.
func (s *Service) GetProfile(ctx context.Context, req *GetProfileRequest) (*Profile, error) {
	userID := req.UserID
	if userID == "" {
		v, err := viewer.Require(ctx)
		if err != nil {
			return nil, svcErr.Map(err)
		}
		userID = v.UserID()
	}

	p, err := s.profileRepo.Get(ctx, userID)
	if repository.IsNotFound(err) {
		return toProfile(userID, nil), nil
	} else if err != nil {
		return nil, svcErr.Map(err)
	}
	return toProfile(userID, p), nil
}

// UpdateProfile validates and stores the set fields of req. A new avatar is
// uploaded before the row is written.
func (s *Service) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*Profile, error) {
	v, err := viewer.Require(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	uid := v.UserID()

	profile := &db.Profile{ID: uid}
	var columns []string
	in := validation.ProfileInput{}
	if req.Nickname != nil {
		in.Nickname = *req.Nickname
		columns = append(columns, "nickname")
	}
	if req.Bio != nil {
		in.Bio = *req.Bio
		columns = append(columns, "bio")
	}

	fields := validation.FieldErrors{}
	if err := validation.Profile(&in); err != nil {
		fe, ok := validation.AsFieldErrors(err)
		if !ok {
			return nil, svcErr.Map(err)
		}
		fields = fe
	}

	var avatar storage.Image
	if req.Avatar != nil {
		img, msg := storage.CheckImage(req.Avatar.Data, s.appCtx.Config.Storage.MaxAvatarBytes)
		if msg != "" {
			fields.Add("avatar", msg)
		}
		avatar = img
	}
	if err := fields.Err(); err != nil {
		return nil, svcErr.Map(err)
	}

	profile.Nickname = in.Nickname
	profile.Bio = in.Bio
	if req.Avatar != nil {
		path := storage.AvatarPath(uid, s.appCtx.Now(), avatar.Ext)
		if err := s.appCtx.Storage.Upload(ctx, storage.BucketAvatars, path, avatar.Data); err != nil {
			s.log(ctx).Error("avatar upload failed", "user_id", uid, "err", err)
			return nil, svcErr.Map(err)
		}
		profile.AvatarURL = s.appCtx.Storage.PublicURL(storage.BucketAvatars, path)
		columns = append(columns, "avatar_url")
	}

	if len(columns) == 0 {
		return s.GetProfile(ctx, &GetProfileRequest{UserID: uid})
	}
	if err := s.profileRepo.Upsert(ctx, profile, columns...); err != nil {
		s.log(ctx).Error("profile upsert failed", "user_id", uid, "err", err)
		return nil, svcErr.Map(err)
	}

	s.log(ctx).Debug("profile updated", "user_id", uid, "columns", columns)
	return s.GetProfile(ctx, &GetProfileRequest{UserID: uid})
}
