package rpc

import (
	"context"
	"fmt"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	weavererrors "github.com/orchestrion-go/weaver/internal/errors"
	"github.com/orchestrion-go/weaver/internal/jsparse"
	"github.com/orchestrion-go/weaver/internal/orchestrator"
)

// Client dials a remote Server and invokes its Transform method via
// dynamic protobuf messages, mirroring grpcConnect/grpcInvoke.
type Client struct {
	conn *grpc.ClientConn
	sd   *desc.ServiceDescriptor
}

// Dial connects to target (host:port) and loads the TransformService
// descriptor needed to build/read messages for it.
func Dial(target string) (*Client, error) {
	sd, err := loadServiceDescriptor()
	if err != nil {
		return nil, err
	}
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, sd: sd}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Transform invokes the remote Orchestrator.Transform and reconstructs
// an orchestrator.Result from the dynamic response message.
func (c *Client) Transform(ctx context.Context, path string, source []byte, moduleName, moduleVersion string, flag jsparse.ModuleFlag) (orchestrator.Result, error) {
	md := c.sd.FindMethodByName("Transform")

	reqMsg := dynamic.NewMessage(md.GetInputType())
	reqMsg.SetFieldByName("path", path)
	reqMsg.SetFieldByName("source", source)
	reqMsg.SetFieldByName("module_name", moduleName)
	reqMsg.SetFieldByName("module_version", moduleVersion)
	reqMsg.SetFieldByName("module_flag", moduleFlagString(flag))

	respMsg := dynamic.NewMessage(md.GetOutputType())
	methodPath := fmt.Sprintf("/%s/%s", md.GetService().GetFullyQualifiedName(), md.GetName())
	if err := c.conn.Invoke(ctx, methodPath, reqMsg, respMsg); err != nil {
		return orchestrator.Result{}, err
	}

	if errMsg := stringField(respMsg, "error"); errMsg != "" {
		return orchestrator.Result{}, fmt.Errorf("remote transform failed: %s", errMsg)
	}

	result := orchestrator.Result{Output: bytesField(respMsg, "output")}
	raw, _ := respMsg.TryGetFieldByName("failures")
	entries, _ := raw.([]interface{})
	for _, e := range entries {
		fm, ok := e.(*dynamic.Message)
		if !ok {
			continue
		}
		idx, _ := fm.TryGetFieldByName("query_index")
		queryIndex, _ := idx.(int32)
		result.Failures = append(result.Failures, weavererrors.NewInjectionMatchFailure(
			stringField(fm, "module_name"),
			stringField(fm, "channel_name"),
			stringField(fm, "file_path"),
			stringField(fm, "query_name"),
			int(queryIndex),
		))
	}
	return result, nil
}
