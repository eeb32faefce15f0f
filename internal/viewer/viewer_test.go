package viewer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oggyb/hwreports/internal/identity"
)

func TestFromContext(t *testing.T) {
	anon := FromContext(context.Background())
	assert.False(t, anon.Authenticated())
	assert.Empty(t, anon.UserID())

	_, err := Require(context.Background())
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)

	ctx := WithViewer(context.Background(), Viewer{
		Session:       &identity.Session{UserID: "u1"},
		EnvironmentID: "env",
	})
	v, err := Require(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "u1", v.UserID())
	assert.Equal(t, "env", v.EnvironmentID)
}
