package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/oggyb/hwreports/internal/identity"
	"github.com/oggyb/hwreports/internal/logger"
	"github.com/oggyb/hwreports/internal/repository"
	"github.com/oggyb/hwreports/internal/testutil"
	"github.com/oggyb/hwreports/internal/validation"
)

type fixture struct {
	svc    *identity.Service
	now    time.Time
	events []identity.Event
	mu     sync.Mutex
}

func newFixture(t *testing.T, providers map[string]*identity.Provider) *fixture {
	t.Helper()
	rc, _ := testutil.NewRedis(t)
	f := &fixture{now: time.Now().UTC().Truncate(time.Second)}
	f.svc = identity.NewService(repository.NewAccountRepository(testutil.OpenSQLite(t)), rc, identity.Options{
		Issuer:     "test",
		Secret:     "secret",
		SessionTTL: time.Hour,
		Providers:  providers,
		Now:        func() time.Time { return f.now },
		Logger:     logger.Discard(),
	})
	unsubscribe := f.svc.OnSessionChange(func(ev identity.Event) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, ev)
	})
	t.Cleanup(unsubscribe)
	return f
}

func (f *fixture) eventTypes() []identity.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]identity.EventType, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.Type)
	}
	return out
}

func signUp(t *testing.T, f *fixture, email string) *identity.Session {
	t.Helper()
	sess, err := f.svc.SignUp(context.Background(), validation.SignUpInput{
		Email: email, Password: "hunter2hunter2", PasswordConfirm: "hunter2hunter2",
	})
	require.NoError(t, err)
	return sess
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	sess := signUp(t, f, "neo@example.com")
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, f.now.Add(time.Hour), sess.ExpiresAt)

	got, err := f.svc.GetSession(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.Equal(t, "neo@example.com", got.Email)

	require.NoError(t, f.svc.SignOut(ctx, got))
	_, err = f.svc.GetSession(ctx, sess.Token)
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)

	assert.Equal(t, []identity.EventType{identity.EventSignedUp, identity.EventSignedOut}, f.eventTypes())
}

func TestGetSession_RejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	sess := signUp(t, f, "neo@example.com")

	_, err := f.svc.GetSession(ctx, "")
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)

	_, err = f.svc.GetSession(ctx, sess.Token+"x")
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)

	f.now = f.now.Add(2 * time.Hour)
	_, err = f.svc.GetSession(ctx, sess.Token)
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	signUp(t, f, "neo@example.com")

	sess, err := f.svc.SignIn(ctx, validation.SignInInput{Email: "NEO@example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "neo@example.com", sess.Email)

	_, err = f.svc.SignIn(ctx, validation.SignInInput{Email: "neo@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	_, err = f.svc.SignIn(ctx, validation.SignInInput{Email: "ghost@example.com", Password: "hunter2hunter2"})
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestSignUp_ValidationAndDuplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.svc.SignUp(ctx, validation.SignUpInput{Email: "x", Password: "short", PasswordConfirm: "nope"})
	fields, ok := validation.AsFieldErrors(err)
	require.True(t, ok)
	assert.Len(t, fields, 3)

	signUp(t, f, "neo@example.com")
	_, err = f.svc.SignUp(ctx, validation.SignUpInput{Email: "neo@example.com", Password: "hunter2hunter2", PasswordConfirm: "hunter2hunter2"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	sess := signUp(t, f, "neo@example.com")

	email := "trinity@example.com"
	pw := "followthewhiterabbit"
	updated, err := f.svc.UpdateUser(ctx, sess, identity.UserUpdate{Email: &email, Password: &pw, PasswordConfirm: &pw})
	require.NoError(t, err)
	assert.Equal(t, email, updated.Email)

	_, err = f.svc.GetSession(ctx, sess.Token)
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)

	_, err = f.svc.SignIn(ctx, validation.SignInInput{Email: email, Password: pw})
	require.NoError(t, err)

	other := "mismatch-mismatch"
	_, err = f.svc.UpdateUser(ctx, updated, identity.UserUpdate{Password: &pw, PasswordConfirm: &other})
	fields, ok := validation.AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, validation.MsgPasswordMismatch, fields["password_confirm"])

	assert.Contains(t, f.eventTypes(), identity.EventUserUpdated)
}

func newOAuthProvider(t *testing.T, email string) *identity.Provider {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at", "token_type": "bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"email": email})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &identity.Provider{
		Name: "Test",
		OAuth: &oauth2.Config{
			ClientID:     "id",
			ClientSecret: "secret",
			RedirectURL:  "http://app/callback",
			Endpoint: oauth2.Endpoint{
				AuthURL:   srv.URL + "/authorize",
				TokenURL:  srv.URL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		UserInfoURL: srv.URL + "/userinfo",
	}
}

func TestOAuthFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]*identity.Provider{"github": newOAuthProvider(t, "octo@example.com")})

	_, err := f.svc.SignInWithOAuth(ctx, "myspace", "/")
	assert.ErrorIs(t, err, identity.ErrUnknownProvider)

	authURL, err := f.svc.SignInWithOAuth(ctx, "github", "/dashboard")
	require.NoError(t, err)
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)

	sess, redirect, err := f.svc.CompleteOAuth(ctx, "github", state, "good-code")
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", redirect)
	assert.Equal(t, "octo@example.com", sess.Email)

	// state is single use
	_, _, err = f.svc.CompleteOAuth(ctx, "github", state, "good-code")
	assert.ErrorIs(t, err, identity.ErrInvalidState)

	// second login finds the same account
	authURL, err = f.svc.SignInWithOAuth(ctx, "github", "/")
	require.NoError(t, err)
	u, _ = url.Parse(authURL)
	again, _, err := f.svc.CompleteOAuth(ctx, "github", u.Query().Get("state"), "good-code")
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, again.UserID)

	assert.Equal(t, []identity.EventType{identity.EventSignedUp, identity.EventSignedIn}, f.eventTypes())

	// password sign-in is refused for oauth-only accounts
	_, err = f.svc.SignIn(ctx, validation.SignInInput{Email: "octo@example.com", Password: "whatever1"})
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestOAuth_BadCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]*identity.Provider{"github": newOAuthProvider(t, "octo@example.com")})

	authURL, err := f.svc.SignInWithOAuth(ctx, "github", "/")
	require.NoError(t, err)
	u, _ := url.Parse(authURL)

	_, _, err = f.svc.CompleteOAuth(ctx, "github", u.Query().Get("state"), "bad-code")
	assert.Error(t, err)
}

func TestHub_Unsubscribe(t *testing.T) {
	h := identity.NewHub()
	var calls int
	unsubscribe := h.Subscribe(func(identity.Event) { calls++ })

	h.Publish(identity.Event{Type: identity.EventSignedIn})
	unsubscribe()
	unsubscribe()
	h.Publish(identity.Event{Type: identity.EventSignedIn})

	assert.Equal(t, 1, calls)
}
