package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/oggyb/hwreports/internal/identity"
	"github.com/oggyb/hwreports/internal/logger"
	"github.com/oggyb/hwreports/internal/viewer"
)

// Metadata keys read from incoming calls.
const (
	MDAuthorization = "authorization"
	MDEnvironmentID = "x-environment-id"
	MDRequestID     = "x-request-id"
)

// SessionVerifier resolves a bearer token into a session.
type SessionVerifier interface {
	GetSession(ctx context.Context, token string) (*identity.Session, error)
}

func firstMD(md metadata.MD, key string) string {
	if vals := md.Get(key); len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}

// resolveViewer builds the viewer of a call. A present but invalid token
// fails the call; a missing one leaves the viewer anonymous.
func resolveViewer(ctx context.Context, sessions SessionVerifier) (context.Context, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	v := viewer.Viewer{EnvironmentID: firstMD(md, MDEnvironmentID)}

	if auth := firstMD(md, MDAuthorization); auth != "" {
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "authorization must be a bearer token")
		}
		sess, err := sessions.GetSession(ctx, strings.TrimSpace(token))
		if err != nil {
			logger.FromContext(ctx, nil).Debug("session rejected", "error", err)
			return nil, status.Error(codes.Unauthenticated, identity.ErrUnauthenticated.Error())
		}
		v.Session = sess
	}
	return viewer.WithViewer(ctx, v), nil
}

// requestLogger scopes a logger to one call.
func requestLogger(ctx context.Context, base *slog.Logger, method string) (context.Context, *slog.Logger) {
	md, _ := metadata.FromIncomingContext(ctx)
	reqID := firstMD(md, MDRequestID)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	l := base.With("method", method, "request_id", reqID)
	return logger.IntoContext(ctx, l), l
}

func logOutcome(l *slog.Logger, start time.Time, err error) {
	code := status.Code(err)
	attrs := []any{"code", code.String(), "duration", time.Since(start)}
	switch code {
	case codes.OK:
		l.Debug("rpc finished", attrs...)
	case codes.Internal, codes.Unknown, codes.DataLoss:
		l.Error("rpc failed", append(attrs, "error", err)...)
	default:
		l.Info("rpc rejected", append(attrs, "error", err)...)
	}
}

// UnaryInterceptor logs every call and resolves its viewer.
func UnaryInterceptor(base *slog.Logger, sessions SessionVerifier) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		ctx, l := requestLogger(ctx, base, info.FullMethod)
		defer func() { logOutcome(l, start, err) }()

		ctx, err = resolveViewer(ctx, sessions)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context { return w.ctx }

// StreamInterceptor is the streaming counterpart of UnaryInterceptor.
func StreamInterceptor(base *slog.Logger, sessions SessionVerifier) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		start := time.Now()
		ctx, l := requestLogger(ss.Context(), base, info.FullMethod)
		defer func() { logOutcome(l, start, err) }()

		ctx, err = resolveViewer(ctx, sessions)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})
	}
}
