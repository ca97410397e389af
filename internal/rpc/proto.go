// Package rpc exposes one Orchestrator over gRPC using dynamically
// parsed protobuf descriptors instead of protoc-generated Go types —
// the same "no codegen, load a .proto at startup and drive it with
// jhump/protoreflect/dynamic messages" approach the teacher used for its
// own grpc/proto built-ins.
package rpc

import (
	"fmt"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
)

const transformProtoFilename = "transform.proto"

const transformProtoSource = `
syntax = "proto3";

package weaver;

message TransformRequest {
  string path = 1;
  bytes source = 2;
  string module_name = 3;
  string module_version = 4;
  string module_flag = 5; // "module" | "script" | "unknown"
}

message InjectionFailure {
  string module_name = 1;
  string channel_name = 2;
  string file_path = 3;
  string query_name = 4;
  int32 query_index = 5;
}

message TransformResponse {
  bytes output = 1;
  repeated InjectionFailure failures = 2;
  string error = 3;
}

service TransformService {
  rpc Transform(TransformRequest) returns (TransformResponse);
}
`

// loadServiceDescriptor parses the embedded transform.proto source into a
// ServiceDescriptor, the same dynamic-message frontend a caller would get
// from loading a proto file off disk with grpcLoadProto.
func loadServiceDescriptor() (*desc.ServiceDescriptor, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{
			transformProtoFilename: transformProtoSource,
		}),
	}
	fds, err := parser.ParseFiles(transformProtoFilename)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", transformProtoFilename, err)
	}
	sd := fds[0].FindService("weaver.TransformService")
	if sd == nil {
		return nil, fmt.Errorf("service weaver.TransformService not found in %s", transformProtoFilename)
	}
	return sd, nil
}
