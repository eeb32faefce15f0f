// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"sort"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/oggyb/hwreports/internal/engagement"
	"github.com/oggyb/hwreports/internal/identity"
	"github.com/oggyb/hwreports/internal/lifecycle"
	"github.com/oggyb/hwreports/internal/utils/pagination"
	"github.com/oggyb/hwreports/internal/validation"
)

// Map converts domain/repo/infra errors into gRPC-friendly status errors.
// Keeps service layer clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err // already a status
	}

	if fields, ok := validation.AsFieldErrors(err); ok {
		return fieldViolations(fields)
	}

	switch {
	case errors.Is(err, lifecycle.ErrNotOwner):
		return status.Error(codes.PermissionDenied, err.Error())

	case errors.Is(err, lifecycle.ErrLocked):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, identity.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, identity.ErrInvalidCredentials.Error())

	case errors.Is(err, identity.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, identity.ErrUnauthenticated.Error())

	case errors.Is(err, identity.ErrInvalidState),
		errors.Is(err, identity.ErrUnknownProvider),
		errors.Is(err, engagement.ErrNoEnvironment),
		errors.Is(err, pagination.ErrInvalidToken):
		return InvalidArgument(err.Error())

	case errors.Is(err, gorm.ErrRecordNotFound):
		return status.Error(codes.NotFound, "record not found")

	case errors.Is(err, gorm.ErrDuplicatedKey):
		return AlreadyExists("record already exists")

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")

	default:
		// fallback → bubble up error message for debugging
		return status.Error(codes.Internal, err.Error())
	}
}

// InvalidArgument creates a gRPC InvalidArgument error.
// Use this in service layer for bad input validation.
func InvalidArgument(msg string) error {
	return status.Error(codes.InvalidArgument, msg)
}

// AlreadyExists creates a gRPC AlreadyExists error.
func AlreadyExists(msg string) error {
	return status.Error(codes.AlreadyExists, msg)
}

// fieldViolations attaches one BadRequest violation per field, sorted by field.
func fieldViolations(fields validation.FieldErrors) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	br := &errdetails.BadRequest{}
	for _, name := range names {
		br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       name,
			Description: fields[name],
		})
	}

	st := status.New(codes.InvalidArgument, fields.Error())
	if withDetails, err := st.WithDetails(br); err == nil {
		st = withDetails
	}
	return st.Err()
}

// FieldViolations extracts the field → message map from a status error
// produced by Map. Used by clients and tests.
func FieldViolations(err error) map[string]string {
	st, ok := status.FromError(err)
	if !ok {
		return nil
	}
	out := map[string]string{}
	for _, d := range st.Details() {
		if br, ok := d.(*errdetails.BadRequest); ok {
			for _, v := range br.GetFieldViolations() {
				out[v.GetField()] = v.GetDescription()
			}
		}
	}
	return out
}
