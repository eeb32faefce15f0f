package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/hwreports/internal/config"
	"github.com/oggyb/hwreports/internal/identity"
	"github.com/oggyb/hwreports/internal/logger"
	"github.com/oggyb/hwreports/internal/viewer"
)

const echoService = "test.v1.Echo"

type echoRequest struct {
	Text  string   `json:"text"`
	Count int      `json:"count"`
	Tags  []string `json:"tags"`
}

type echoResponse struct {
	Text          string   `json:"text"`
	Count         int      `json:"count"`
	Tags          []string `json:"tags"`
	UserID        string   `json:"user_id"`
	EnvironmentID string   `json:"environment_id"`
}

type echoAPI interface {
	Echo(ctx context.Context, req *echoRequest) (*echoResponse, error)
	Repeat(req *echoRequest, stream Sender[echoResponse]) error
	Hold(req *echoRequest, stream Sender[echoResponse]) error
}

type echoServer struct{}

func (echoServer) Echo(ctx context.Context, req *echoRequest) (*echoResponse, error) {
	v := viewer.FromContext(ctx)
	return &echoResponse{Text: req.Text, Count: req.Count, Tags: req.Tags, UserID: v.UserID(), EnvironmentID: v.EnvironmentID}, nil
}

func (echoServer) Repeat(req *echoRequest, stream Sender[echoResponse]) error {
	if _, err := viewer.Require(stream.Context()); err != nil {
		return status.Error(codes.Unauthenticated, err.Error())
	}
	for i := 0; i < req.Count; i++ {
		if err := stream.Send(&echoResponse{Text: req.Text, Count: i}); err != nil {
			return err
		}
	}
	return nil
}

// Hold sends one message and then blocks until the call ends.
func (echoServer) Hold(req *echoRequest, stream Sender[echoResponse]) error {
	if err := stream.Send(&echoResponse{Text: req.Text}); err != nil {
		return err
	}
	<-stream.Context().Done()
	return stream.Context().Err()
}

var echoDesc = grpc.ServiceDesc{
	ServiceName: echoService,
	HandlerType: (*echoAPI)(nil),
	Methods: []grpc.MethodDesc{
		Unary(echoService, "Echo", echoAPI.Echo),
	},
	Streams: []grpc.StreamDesc{
		ServerStream("Repeat", echoAPI.Repeat),
		ServerStream("Hold", echoAPI.Hold),
	},
}


type fakeSessions map[string]string

func (f fakeSessions) GetSession(_ context.Context, token string) (*identity.Session, error) {
	if uid, ok := f[token]; ok {
		return &identity.Session{UserID: uid}, nil
	}
	return nil, errors.New("bad token")
}

func dial(t *testing.T) *grpc.ClientConn {
	t.Helper()
	conn, _ := dialServer(t)
	return conn
}

func dialServer(t *testing.T) (*grpc.ClientConn, *grpc.Server) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(logger.Discard(), fakeSessions{"good": "u1"}, Service(&echoDesc, echoServer{}))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, srv
}

func TestUnary_StructRoundTrip(t *testing.T) {
	conn := dial(t)
	ctx := metadata.AppendToOutgoingContext(context.Background(),
		MDAuthorization, "Bearer good",
		MDEnvironmentID, "env-1",
	)

	resp, err := Call[echoRequest, echoResponse](ctx, conn, FullMethod(echoService, "Echo"),
		&echoRequest{Text: "hello", Count: 42, Tags: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, &echoResponse{Text: "hello", Count: 42, Tags: []string{"a", "b"}, UserID: "u1", EnvironmentID: "env-1"}, resp)
}

func TestUnary_Anonymous(t *testing.T) {
	conn := dial(t)

	resp, err := Call[echoRequest, echoResponse](context.Background(), conn, FullMethod(echoService, "Echo"), &echoRequest{Text: "hi"})
	require.NoError(t, err)
	assert.Empty(t, resp.UserID)
	assert.Empty(t, resp.EnvironmentID)
}

func TestUnary_InvalidTokenIsUnauthenticated(t *testing.T) {
	conn := dial(t)

	for _, auth := range []string{"Bearer nope", "Basic abc"} {
		ctx := metadata.AppendToOutgoingContext(context.Background(), MDAuthorization, auth)
		_, err := Call[echoRequest, echoResponse](ctx, conn, FullMethod(echoService, "Echo"), &echoRequest{})
		assert.Equal(t, codes.Unauthenticated, status.Code(err), auth)
	}
}

func TestServerStream(t *testing.T) {
	conn := dial(t)
	ctx := metadata.AppendToOutgoingContext(context.Background(), MDAuthorization, "Bearer good")

	got, err := Collect[echoRequest, echoResponse](ctx, conn, FullMethod(echoService, "Repeat"), &echoRequest{Text: "tick", Count: 3})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 2, got[2].Count)

	_, err = Collect[echoRequest, echoResponse](context.Background(), conn, FullMethod(echoService, "Repeat"), &echoRequest{Count: 1})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestStopGRPCServer_DrainsIdleServer(t *testing.T) {
	conn, srv := dialServer(t)
	_, err := Call[echoRequest, echoResponse](context.Background(), conn, FullMethod(echoService, "Echo"), &echoRequest{Text: "hi"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.True(t, StopGRPCServer(ctx, srv))
}

func TestStopGRPCServer_ClosesStreamsAfterDeadline(t *testing.T) {
	conn, srv := dialServer(t)

	method := FullMethod(echoService, "Hold")
	stream, err := conn.NewStream(context.Background(), &grpc.StreamDesc{StreamName: "Hold", ServerStreams: true}, method)
	require.NoError(t, err)
	in, err := EncodeStruct(&echoRequest{Text: "countdown"})
	require.NoError(t, err)
	require.NoError(t, stream.SendMsg(in))
	require.NoError(t, stream.CloseSend())

	// the handler is running once the first message arrives
	first := new(structpb.Struct)
	require.NoError(t, stream.RecvMsg(first))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	assert.False(t, StopGRPCServer(ctx, srv))
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.Error(t, stream.RecvMsg(new(structpb.Struct)))
}

func TestHTTPHandler_StorageAndHealth(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "images", "a.txt"), []byte("stored"), 0o644))

	cfg := config.Defaults()
	cfg.Storage.Root = root
	cfg.Storage.PublicURL = "http://127.0.0.1:8080/files/"

	healthy := true
	h := NewHTTPHandler(cfg, logger.Discard(), map[string]HealthCheck{
		"redis": func(context.Context) error {
			if healthy {
				return nil
			}
			return errors.New("down")
		},
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/images/a.txt", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stored", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	healthy = false
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "down")
}

func TestStoragePrefix(t *testing.T) {
	assert.Equal(t, "/storage", StoragePrefix("http://localhost:8080"))
	assert.Equal(t, "/files", StoragePrefix("http://localhost:8080/files/"))
	assert.Equal(t, "/a/b", StoragePrefix("https://cdn.example.com/a/b"))
}
