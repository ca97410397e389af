package rpc

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/jhump/protoreflect/dynamic"
	"github.com/stretchr/testify/require"

	"github.com/orchestrion-go/weaver/internal/ast"
	"github.com/orchestrion-go/weaver/internal/config"
	"github.com/orchestrion-go/weaver/internal/orchestrator"
	"github.com/orchestrion-go/weaver/internal/query"
)

func TestLoadServiceDescriptorFindsTransformMethod(t *testing.T) {
	sd, err := loadServiceDescriptor()
	require.NoError(t, err)
	md := sd.FindMethodByName("Transform")
	require.NotNil(t, md)
	require.NotNil(t, md.GetInputType().FindFieldByName("source"))
	require.NotNil(t, md.GetOutputType().FindFieldByName("failures"))
}

func TestHandleTransformRoundTripsASuccessfulMatch(t *testing.T) {
	sd, err := loadServiceDescriptor()
	require.NoError(t, err)
	md := sd.FindMethodByName("Transform")

	cfg := &config.Config{
		DCModule: "diagnostics_channel",
		Instrumentations: []config.InstrumentationConfig{{
			ChannelName: "fetch_decl",
			Module:      config.ModuleMatcher{Name: "m", FilePath: "a.js", VersionRange: mustRange(t, "*")},
			FunctionQuery: query.FunctionQuery{
				Variant: query.FunctionDeclaration, Name: "fetch", Kind: ast.KindSync, Index: 0,
			},
		}},
	}
	srv := &Server{orch: orchestrator.New(cfg), sd: sd}

	req := dynamic.NewMessage(md.GetInputType())
	req.SetFieldByName("path", "a.js")
	req.SetFieldByName("source", []byte("function fetch() { return 1; }"))
	req.SetFieldByName("module_name", "m")
	req.SetFieldByName("module_version", "1.0.0")
	req.SetFieldByName("module_flag", "script")

	resp, err := srv.handleTransform(md, func(v interface{}) error {
		data, err := req.Marshal()
		if err != nil {
			return err
		}
		return v.(*dynamic.Message).Unmarshal(data)
	})
	require.NoError(t, err)
	respMsg := resp.(*dynamic.Message)
	require.Equal(t, "", stringField(respMsg, "error"))
	require.Contains(t, string(bytesField(respMsg, "output")), "tr_ch_apm$fetch_decl")
}

func mustRange(t *testing.T, s string) *semver.Constraints {
	t.Helper()
	c, err := semver.NewConstraint(s)
	require.NoError(t, err)
	return c
}
