package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/policy-intake/internal/common"
)

// ServiceName is the fully qualified gRPC service name. Every method takes and returns a
// google.protobuf.Struct.
const ServiceName = "policyintake.v1.WizardService"

type method func(*WizardService, context.Context, *structpb.Struct) (*structpb.Struct, error)

var methods = []struct {
	name string
	fn   method
}{
	{"CreateSession", (*WizardService).CreateSession},
	{"GetSession", (*WizardService).GetSession},
	{"DeleteSession", (*WizardService).DeleteSession},
	{"SearchClients", (*WizardService).SearchClients},
	{"ListCompanies", (*WizardService).ListCompanies},
	{"ListSections", (*WizardService).ListSections},
	{"CompleteStep", (*WizardService).CompleteStep},
	{"GoNext", (*WizardService).GoNext},
	{"GoBack", (*WizardService).GoBack},
	{"GoToStep", (*WizardService).GoToStep},
	{"Reset", (*WizardService).Reset},
	{"UploadDocument", (*WizardService).UploadDocument},
	{"ProcessDocument", (*WizardService).ProcessDocument},
	{"EditField", (*WizardService).EditField},
	{"ClearField", (*WizardService).ClearField},
	{"Submit", (*WizardService).Submit},
	{"ExportSubmissions", (*WizardService).ExportSubmissions},
}

// FullMethod returns the gRPC path of a wizard method.
func FullMethod(name string) string { return "/" + ServiceName + "/" + name }

// ServiceDesc describes the wizard service for grpc.Server.RegisterService.
func ServiceDesc() *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*any)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    "policyintake/v1/wizard.proto",
	}
	for _, m := range methods {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{MethodName: m.name, Handler: handler(m.name, m.fn)})
	}
	return desc
}

func handler(name string, fn method) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		svc := srv.(*WizardService)
		if interceptor == nil {
			return fn(svc, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return fn(svc, ctx, req.(*structpb.Struct))
		})
	}
}

// Register adds the wizard and health services to gs and returns the health server.
func Register(gs *grpc.Server, svc *WizardService) *health.Server {
	gs.RegisterService(ServiceDesc(), svc)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return hs
}

// UnaryInterceptor tags the context with a request ID, logs the call and maps errors to gRPC
// status codes.
func UnaryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		requestID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("x-request-id"); len(v) > 0 {
				requestID = v[0]
			}
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = common.WithRequestID(ctx, requestID)

		resp, err := next(ctx, req)
		err = common.ToStatus(err)
		log := common.Logger(ctx, logger)
		if err != nil {
			log.Warn("grpc.call.failed", "method", info.FullMethod, "code", status.Code(err).String(), "error", err,
				"elapsed_ms", time.Since(start).Milliseconds())
			return nil, err
		}
		log.Info("grpc.call.ok", "method", info.FullMethod, "elapsed_ms", time.Since(start).Milliseconds())
		return resp, nil
	}
}
