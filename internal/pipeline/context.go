package pipeline

import (
	"github.com/orchestrion-go/weaver/internal/ast"
	"github.com/orchestrion-go/weaver/internal/config"
	"github.com/orchestrion-go/weaver/internal/errors"
	"github.com/orchestrion-go/weaver/internal/instrumentation"
	"github.com/orchestrion-go/weaver/internal/jsparse"
	"github.com/orchestrion-go/weaver/internal/printer"
)

// Processor is one stage of a Pipeline. A stage that finds Err already
// set on entry must return ctx unchanged, letting later stages short
// circuit without every stage re-checking why.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// PipelineContext threads one Transform call's state through the
// parse/match/splice stages. It plays the same role as the interpreter
// pipeline's context carrying source, AST and diagnostics between
// stages, generalized to a single-shot transform instead of a
// long-lived REPL/LSP session.
type PipelineContext struct {
	Path          string
	Source        []byte
	ModuleName    string
	ModuleVersion string
	ModuleFlag    jsparse.ModuleFlag
	Config        *config.Config

	Program  *ast.Program
	Matching []*instrumentation.Instrumentation
	Splices  []printer.Splice
	Output   []byte
	Failures []*errors.InjectionMatchFailure

	Err error
}

// NewPipelineContext builds the initial context for one transform call.
func NewPipelineContext(path string, source []byte, moduleName, moduleVersion string, flag jsparse.ModuleFlag, cfg *config.Config) *PipelineContext {
	return &PipelineContext{
		Path:          path,
		Source:        source,
		ModuleName:    moduleName,
		ModuleVersion: moduleVersion,
		ModuleFlag:    flag,
		Config:        cfg,
	}
}
