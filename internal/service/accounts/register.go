package accounts

import (
	"context"

	"google.golang.org/grpc"

	"github.com/oggyb/hwreports/internal/app"
	"github.com/oggyb/hwreports/internal/identity"
	"github.com/oggyb/hwreports/internal/server"
	"github.com/oggyb/hwreports/internal/validation"
)

const ServiceName = "hwreports.v1.AccountService"

// API is the AccountService contract.
type API interface {
	SignUp(ctx context.Context, req *validation.SignUpInput) (*SessionResponse, error)
	SignIn(ctx context.Context, req *validation.SignInInput) (*SessionResponse, error)
	StartOAuth(ctx context.Context, req *StartOAuthRequest) (*StartOAuthResponse, error)
	CompleteOAuth(ctx context.Context, req *CompleteOAuthRequest) (*CompleteOAuthResponse, error)
	GetSession(ctx context.Context, req *GetSessionRequest) (*identity.Session, error)
	SignOut(ctx context.Context, req *SignOutRequest) (*SignOutResponse, error)
	UpdateUser(ctx context.Context, req *UpdateUserRequest) (*SessionResponse, error)
	GetProfile(ctx context.Context, req *GetProfileRequest) (*Profile, error)
	UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*Profile, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*API)(nil),
	Methods: []grpc.MethodDesc{
		server.Unary(ServiceName, "SignUp", API.SignUp),
		server.Unary(ServiceName, "SignIn", API.SignIn),
		server.Unary(ServiceName, "StartOAuth", API.StartOAuth),
		server.Unary(ServiceName, "CompleteOAuth", API.CompleteOAuth),
		server.Unary(ServiceName, "GetSession", API.GetSession),
		server.Unary(ServiceName, "SignOut", API.SignOut),
		server.Unary(ServiceName, "UpdateUser", API.UpdateUser),
		server.Unary(ServiceName, "GetProfile", API.GetProfile),
		server.Unary(ServiceName, "UpdateProfile", API.UpdateProfile),
	},
	Metadata: "hwreports/v1/accounts",
}

// Registrar ties the Account service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&ServiceDesc, NewAccountService(r.appCtx))
}
