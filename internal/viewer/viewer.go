// Package viewer carries the caller of a request through its context.
package viewer

import (
	"context"

	"github.com/oggyb/hwreports/internal/identity"
)

// Viewer is the caller of one request. Session is nil for anonymous callers.
// EnvironmentID identifies the client installation and scopes engagement
// markers; it may be empty.
type Viewer struct {
	Session       *identity.Session
	EnvironmentID string
}

func (v Viewer) Authenticated() bool { return v.Session != nil }

// UserID returns "" for anonymous callers.
func (v Viewer) UserID() string {
	if v.Session == nil {
		return ""
	}
	return v.Session.UserID
}

type ctxKey struct{}

func WithViewer(ctx context.Context, v Viewer) context.Context {
	return context.WithValue(ctx, ctxKey{}, v)
}

// FromContext returns the viewer stored in ctx, or an anonymous one.
func FromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(ctxKey{}).(Viewer)
	return v
}

// Require returns the viewer when it is authenticated.
func Require(ctx context.Context) (Viewer, error) {
	v := FromContext(ctx)
	if !v.Authenticated() {
		return v, identity.ErrUnauthenticated
	}
	return v, nil
}
