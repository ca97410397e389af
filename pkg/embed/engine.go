// Package weaver is the host-embedding surface of the instrumentation
// engine: a single Engine type wrapping an Orchestrator, exposed for
// callers that link the engine directly into their own build tool
// rather than shelling out to cmd/weaverctl or dialing cmd/weaverd.
package weaver

import (
	"os"

	"github.com/orchestrion-go/weaver/internal/config"
	"github.com/orchestrion-go/weaver/internal/jsparse"
	"github.com/orchestrion-go/weaver/internal/orchestrator"
)

// ModuleFlag re-exports internal/jsparse's module/script disambiguation
// so host code never has to import an internal package directly.
type ModuleFlag = jsparse.ModuleFlag

const (
	Unknown = jsparse.Unknown
	Module  = jsparse.Module
	Script  = jsparse.Script
)

// Result re-exports the Orchestrator's transform outcome.
type Result = orchestrator.Result

// Engine wraps an Orchestrator built from a loaded instrumentation
// catalog, the single exported type a host embeds — mirroring the
// teacher's own "one struct wraps the core engine" embedding shape,
// with the reflection-based host-call binding machinery dropped since
// there is no scripting language left to host-call into.
type Engine struct {
	orch *orchestrator.Orchestrator
}

// New builds an Engine from an already-loaded Config.
func New(cfg *config.Config) *Engine {
	return &Engine{orch: orchestrator.New(cfg)}
}

// NewFromYAML loads a YAML instrumentation catalog and builds an Engine
// over it in one call.
func NewFromYAML(data []byte) (*Engine, error) {
	cfg, err := config.Load(data)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

// Transform rewrites one in-memory source file. See
// Orchestrator.Transform for the semantics of each parameter.
func (e *Engine) Transform(path string, source []byte, moduleName, moduleVersion string, flag ModuleFlag) (Result, error) {
	return e.orch.Transform(path, source, moduleName, moduleVersion, flag)
}

// TransformFile reads path off disk and transforms it in place,
// overwriting it only when the transform fully succeeds (no
// InjectionMatchFailures); on any failure the file on disk is left
// untouched, matching Transform's own "no partial output" policy.
func (e *Engine) TransformFile(path, moduleName, moduleVersion string, flag ModuleFlag) (Result, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	result, err := e.Transform(path, source, moduleName, moduleVersion, flag)
	if err != nil {
		return Result{}, err
	}
	if len(result.Failures) > 0 {
		return result, nil
	}
	if err := os.WriteFile(path, result.Output, 0o644); err != nil {
		return Result{}, err
	}
	return result, nil
}

// Version reports the engine version embedded at build time.
func Version() string {
	return config.Version
}
