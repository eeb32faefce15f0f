package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/oggyb/hwreports/internal/identity"
	"github.com/oggyb/hwreports/internal/lifecycle"
	"github.com/oggyb/hwreports/internal/validation"
)

func TestMap_Codes(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{lifecycle.ErrNotOwner, codes.PermissionDenied},
		{fmt.Errorf("edit: %w", lifecycle.ErrLocked), codes.FailedPrecondition},
		{identity.ErrInvalidCredentials, codes.Unauthenticated},
		{errors.Join(identity.ErrUnauthenticated, errors.New("token expired")), codes.Unauthenticated},
		{fmt.Errorf("load: %w", gorm.ErrRecordNotFound), codes.NotFound},
		{gorm.ErrDuplicatedKey, codes.AlreadyExists},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{context.Canceled, codes.Canceled},
		{errors.New("boom"), codes.Internal},
		{status.Error(codes.Unavailable, "down"), codes.Unavailable},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, status.Code(Map(tc.err)), tc.err.Error())
	}
	assert.NoError(t, Map(nil))
}

func TestHelpers(t *testing.T) {
	err := InvalidArgument("id is required")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, "id is required", status.Convert(err).Message())

	err = AlreadyExists("record already exists")
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	// Map builds on the same helpers
	assert.Equal(t, err.Error(), Map(fmt.Errorf("create: %w", gorm.ErrDuplicatedKey)).Error())
}

func TestMap_FieldViolations(t *testing.T) {
	err := Map(fmt.Errorf("submit: %w", validation.FieldErrors{
		"ram_gb":   validation.MsgRAMOutOfRange,
		"fps_1low": validation.MsgLowExceedsAvg,
	}))

	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, map[string]string{
		"ram_gb":   validation.MsgRAMOutOfRange,
		"fps_1low": validation.MsgLowExceedsAvg,
	}, FieldViolations(err))
}
