package server

import "google.golang.org/grpc"

// Registrar attaches one service implementation to the gRPC server.
type Registrar interface {
	Register(s *grpc.Server)
}

// RegistrarFunc adapts a plain function to Registrar.
type RegistrarFunc func(s *grpc.Server)

func (f RegistrarFunc) Register(s *grpc.Server) { f(s) }

// Service returns a Registrar for desc backed by impl.
func Service(desc *grpc.ServiceDesc, impl any) Registrar {
	return RegistrarFunc(func(s *grpc.Server) { s.RegisterService(desc, impl) })
}
