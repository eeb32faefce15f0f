package reports

import (
	"context"

	"google.golang.org/grpc"

	"github.com/oggyb/hwreports/internal/app"
	"github.com/oggyb/hwreports/internal/engagement"
	"github.com/oggyb/hwreports/internal/hardware"
	"github.com/oggyb/hwreports/internal/server"
)

const ServiceName = "hwreports.v1.ReportService"

// API is the ReportService contract.
type API interface {
	SubmitReport(ctx context.Context, req *SubmitReportRequest) (*SubmitReportResponse, error)
	GetReport(ctx context.Context, req *GetReportRequest) (*GetReportResponse, error)
	ListReports(ctx context.Context, req *ListReportsRequest) (*ListReportsResponse, error)
	EditReport(ctx context.Context, req *EditReportRequest) (*EditReportResponse, error)
	GetEditStatus(ctx context.Context, req *GetEditStatusRequest) (*EditStatus, error)
	WatchEditWindow(req *WatchEditWindowRequest, stream server.Sender[EditStatus]) error
	ToggleLike(ctx context.Context, req *ToggleLikeRequest) (*engagement.LikeState, error)
	PopularGames(ctx context.Context, req *PopularGamesRequest) (*PopularGamesResponse, error)
	HardwareOptions(ctx context.Context, req *HardwareOptionsRequest) (*hardware.Options, error)
	SuggestPreset(ctx context.Context, req *SuggestPresetRequest) (*SuggestPresetResponse, error)
	Dashboard(ctx context.Context, req *DashboardRequest) (*DashboardResponse, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*API)(nil),
	Methods: []grpc.MethodDesc{
		server.Unary(ServiceName, "SubmitReport", API.SubmitReport),
		server.Unary(ServiceName, "GetReport", API.GetReport),
		server.Unary(ServiceName, "ListReports", API.ListReports),
		server.Unary(ServiceName, "EditReport", API.EditReport),
		server.Unary(ServiceName, "GetEditStatus", API.GetEditStatus),
		server.Unary(ServiceName, "ToggleLike", API.ToggleLike),
		server.Unary(ServiceName, "PopularGames", API.PopularGames),
		server.Unary(ServiceName, "HardwareOptions", API.HardwareOptions),
		server.Unary(ServiceName, "SuggestPreset", API.SuggestPreset),
		server.Unary(ServiceName, "Dashboard", API.Dashboard),
	},
	Streams: []grpc.StreamDesc{
		server.ServerStream("WatchEditWindow", API.WatchEditWindow),
	},
	Metadata: "hwreports/v1/reports",
}

// Registrar ties the Report service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Report service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Report service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&ServiceDesc, NewReportService(r.appCtx))
}
