// Package identity signs users up and in, issues and verifies sessions, and
// notifies subscribers whenever a session changes.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/oggyb/hwreports/internal/cache"
	"github.com/oggyb/hwreports/internal/db"
	"github.com/oggyb/hwreports/internal/logger"
	"github.com/oggyb/hwreports/internal/repository"
	"github.com/oggyb/hwreports/internal/validation"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrUnknownProvider    = errors.New("unknown oauth provider")
	ErrInvalidState       = errors.New("oauth state is invalid or expired")
)

type Options struct {
	Issuer     string
	Secret     string
	SessionTTL time.Duration
	StateTTL   time.Duration
	Providers  map[string]*Provider
	Now        func() time.Time
	Logger     *slog.Logger
}

type Service struct {
	accounts  *repository.AccountRepository
	cache     *cache.RedisCache
	hub       *Hub
	signer    tokenSigner
	providers map[string]*Provider
	stateTTL  time.Duration
	now       func() time.Time
	log       *slog.Logger
}

func NewService(accounts *repository.AccountRepository, rc *cache.RedisCache, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 7 * 24 * time.Hour
	}
	if opts.StateTTL <= 0 {
		opts.StateTTL = 10 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = logger.L()
	}
	if opts.Providers == nil {
		opts.Providers = map[string]*Provider{}
	}
	return &Service{
		accounts:  accounts,
		cache:     rc,
		hub:       NewHub(),
		signer:    tokenSigner{secret: []byte(opts.Secret), issuer: opts.Issuer, ttl: opts.SessionTTL, now: opts.Now},
		providers: opts.Providers,
		stateTTL:  opts.StateTTL,
		now:       opts.Now,
		log:       opts.Logger.With("component", "identity"),
	}
}

// OnSessionChange subscribes fn to session changes.
func (s *Service) OnSessionChange(fn func(Event)) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}

// SignUp creates a password account and signs it in.
func (s *Service) SignUp(ctx context.Context, in validation.SignUpInput) (*Session, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &db.Account{Email: in.Email, PasswordHash: string(hash), Provider: db.ProviderPassword}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	return s.start(account, EventSignedUp)
}

// SignIn checks a password. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, in validation.SignInInput) (*Session, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByEmail(ctx, in.Email)
	if repository.IsNotFound(err) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if account.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(in.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return s.start(account, EventSignedIn)
}

type oauthState struct {
	Provider string `json:"provider"`
	Redirect string `json:"redirect"`
}

// SignInWithOAuth returns the provider URL the user must visit. The state
// embedded in it is valid once, for the configured state TTL.
func (s *Service) SignInWithOAuth(ctx context.Context, provider, redirect string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	state := uuid.NewString()
	payload, err := json.Marshal(oauthState{Provider: provider, Redirect: redirect})
	if err != nil {
		return "", err
	}
	if err := s.cache.PutOAuthState(ctx, state, string(payload), s.stateTTL); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return p.OAuth.AuthCodeURL(state), nil
}

// CompleteOAuth redeems state and code, finds or creates the account behind
// the provider's email and signs it in. It returns the redirect given to
// SignInWithOAuth.
func (s *Service) CompleteOAuth(ctx context.Context, provider, state, code string) (*Session, string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	raw, err := s.cache.TakeOAuthState(ctx, state)
	if err != nil {
		return nil, "", fmt.Errorf("load oauth state: %w", err)
	}
	var st oauthState
	if raw == "" || json.Unmarshal([]byte(raw), &st) != nil || st.Provider != provider {
		return nil, "", ErrInvalidState
	}

	email, err := p.fetchEmail(ctx, code)
	if err != nil {
		return nil, "", err
	}

	event := EventSignedIn
	account, err := s.accounts.GetByEmail(ctx, email)
	if repository.IsNotFound(err) {
		account = &db.Account{Email: email, Provider: provider}
		if err := s.accounts.Create(ctx, account); err != nil {
			return nil, "", fmt.Errorf("create account: %w", err)
		}
		event = EventSignedUp
	} else if err != nil {
		return nil, "", fmt.Errorf("load account: %w", err)
	}

	sess, err := s.start(account, event)
	if err != nil {
		return nil, "", err
	}
	return sess, st.Redirect, nil
}

// GetSession verifies token and rejects revoked sessions.
func (s *Service) GetSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	sess, err := s.signer.parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.cache.IsRevoked(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrUnauthenticated
	}
	return sess, nil
}

// SignOut revokes the session until it would have expired.
func (s *Service) SignOut(ctx context.Context, sess *Session) error {
	if sess == nil {
		return ErrUnauthenticated
	}
	if err := s.cache.RevokeSession(ctx, sess.ID, sess.ExpiresAt.Sub(s.now())); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.hub.Publish(Event{Type: EventSignedOut, Session: sess})
	return nil
}

// UserUpdate changes the email, the password, or both. Nil fields are left
// untouched.
type UserUpdate struct {
	Email           *string
	Password        *string
	PasswordConfirm *string
}

// UpdateUser applies u and returns a replacement session. The old session is
// revoked.
func (s *Service) UpdateUser(ctx context.Context, sess *Session, u UserUpdate) (*Session, error) {
	if sess == nil {
		return nil, ErrUnauthenticated
	}

	fields := validation.FieldErrors{}
	if u.Email != nil {
		if err := validation.Struct(validation.EmailChangeInput{Email: *u.Email}); err != nil {
			merge(fields, err)
		}
	}
	if u.Password != nil {
		in := validation.PasswordChangeInput{Password: *u.Password}
		if u.PasswordConfirm != nil {
			in.PasswordConfirm = *u.PasswordConfirm
		}
		if err := validation.Struct(in); err != nil {
			merge(fields, err)
		}
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	if u.Email != nil {
		if err := s.accounts.UpdateEmail(ctx, sess.UserID, *u.Email); err != nil {
			return nil, fmt.Errorf("update email: %w", err)
		}
	}
	if u.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*u.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		if err := s.accounts.UpdatePasswordHash(ctx, sess.UserID, string(hash)); err != nil {
			return nil, fmt.Errorf("update password: %w", err)
		}
	}

	account, err := s.accounts.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if err := s.cache.RevokeSession(ctx, sess.ID, sess.ExpiresAt.Sub(s.now())); err != nil {
		s.log.Warn("failed to revoke replaced session", "user_id", sess.UserID, "error", err)
	}
	return s.start(account, EventUserUpdated)
}

func (s *Service) start(account *db.Account, event EventType) (*Session, error) {
	sess, err := s.signer.issue(account.ID, account.Email, account.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.hub.Publish(Event{Type: event, Session: sess})
	return sess, nil
}

func merge(dst validation.FieldErrors, err error) {
	if fe, ok := validation.AsFieldErrors(err); ok {
		for k, v := range fe {
			dst.Add(k, v)
		}
	}
}
