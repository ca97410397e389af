package rpc

import (
	"context"
	"log"
	"net"

	"github.com/google/uuid"
	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"

	"github.com/orchestrion-go/weaver/internal/jsparse"
	"github.com/orchestrion-go/weaver/internal/orchestrator"
)

// Server exposes one Orchestrator over the TransformService defined in
// transform.proto. Registration builds a hand-rolled grpc.ServiceDesc
// from the parsed descriptor, the same no-codegen pattern the teacher's
// grpcRegister built-in used for host-defined services.
type Server struct {
	orch       *orchestrator.Orchestrator
	sd         *desc.ServiceDescriptor
	grpcServer *grpc.Server
}

// NewServer loads the service descriptor and binds it to orch.
func NewServer(orch *orchestrator.Orchestrator) (*Server, error) {
	sd, err := loadServiceDescriptor()
	if err != nil {
		return nil, err
	}
	return &Server{orch: orch, sd: sd}, nil
}

// Serve registers the TransformService and blocks accepting connections
// on addr, mirroring the teacher's grpcServe (net.Listen + Server.Serve).
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.grpcServer = grpc.NewServer()

	md := s.sd.FindMethodByName("Transform")
	desc := &grpc.ServiceDesc{
		ServiceName: s.sd.GetFullyQualifiedName(),
		HandlerType: (*interface{})(nil),
		Metadata:    s.sd.GetFile().GetName(),
		Methods: []grpc.MethodDesc{
			{
				MethodName: md.GetName(),
				Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
					return srv.(*Server).handleTransform(md, dec)
				},
			},
		},
	}
	s.grpcServer.RegisterService(desc, s)
	return s.grpcServer.Serve(lis)
}

// GracefulStop drains in-flight calls then stops the server, mirroring
// grpcStop.
func (s *Server) GracefulStop() {
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
}

func (s *Server) handleTransform(md *desc.MethodDescriptor, dec func(interface{}) error) (interface{}, error) {
	reqID := uuid.NewString()

	reqMsg := dynamic.NewMessage(md.GetInputType())
	if err := dec(reqMsg); err != nil {
		return nil, err
	}

	path := stringField(reqMsg, "path")
	source := bytesField(reqMsg, "source")
	moduleName := stringField(reqMsg, "module_name")
	moduleVersion := stringField(reqMsg, "module_version")
	flag := parseModuleFlag(stringField(reqMsg, "module_flag"))

	log.Printf("transform %s: %s@%s %s", reqID, moduleName, moduleVersion, path)

	respMsg := dynamic.NewMessage(md.GetOutputType())

	result, err := s.orch.Transform(path, source, moduleName, moduleVersion, flag)
	if err != nil {
		log.Printf("transform %s: %s", reqID, err)
		respMsg.SetFieldByName("error", err.Error())
		return respMsg, nil
	}

	respMsg.SetFieldByName("output", result.Output)
	failureType := md.GetOutputType().FindFieldByName("failures").GetMessageType()
	for _, f := range result.Failures {
		fm := dynamic.NewMessage(failureType)
		fm.SetFieldByName("module_name", f.ModuleName)
		fm.SetFieldByName("channel_name", f.ChannelName)
		fm.SetFieldByName("file_path", f.FilePath)
		fm.SetFieldByName("query_name", f.QueryName)
		fm.SetFieldByName("query_index", int32(f.QueryIndex))
		respMsg.AddRepeatedFieldByName("failures", fm)
	}
	return respMsg, nil
}

func parseModuleFlag(s string) jsparse.ModuleFlag {
	switch s {
	case "module":
		return jsparse.Module
	case "script":
		return jsparse.Script
	default:
		return jsparse.Unknown
	}
}

func moduleFlagString(f jsparse.ModuleFlag) string {
	switch f {
	case jsparse.Module:
		return "module"
	case jsparse.Script:
		return "script"
	default:
		return "unknown"
	}
}

func stringField(m *dynamic.Message, name string) string {
	v, _ := m.TryGetFieldByName(name)
	s, _ := v.(string)
	return s
}

func bytesField(m *dynamic.Message, name string) []byte {
	v, _ := m.TryGetFieldByName(name)
	b, _ := v.([]byte)
	return b
}
