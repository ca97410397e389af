// Package orchestrator exposes Transform, the single pure entrypoint of
// the instrumentation engine (§4.5): given a parsed instrumentation
// catalog and one source file's identity, it returns the rewritten
// source plus any InjectionMatchFailures, or a fatal error if the
// source could not be parsed at all.
package orchestrator

import (
	"github.com/orchestrion-go/weaver/internal/config"
	"github.com/orchestrion-go/weaver/internal/errors"
	"github.com/orchestrion-go/weaver/internal/jsparse"
	"github.com/orchestrion-go/weaver/internal/pipeline"
	"github.com/orchestrion-go/weaver/internal/wrapper"
)

// Orchestrator holds one loaded instrumentation Config. Transform
// mutates only the Instrumentation match state it builds internally per
// call and never touches Config itself, so calls over the same
// Orchestrator share nothing mutable; it can be reused across many
// transforms.
type Orchestrator struct {
	cfg   *config.Config
	synth *wrapper.Synthesizer
}

// New builds an Orchestrator over an already-loaded Config.
func New(cfg *config.Config) *Orchestrator {
	return &Orchestrator{cfg: cfg, synth: wrapper.New(cfg.DCModule)}
}

// Result is the outcome of one Transform call. Output is populated only
// when every matching InstrumentationConfig actually fired — per the
// "no partial output" policy, a transform with any Failures withholds
// Output entirely rather than hand the caller a half-instrumented file.
type Result struct {
	// Output is the rewritten source. Equals the input byte-for-byte
	// when no instrumentation matched anything in this file. Nil when
	// Failures is non-empty.
	Output []byte
	// Failures lists every InstrumentationConfig whose ModuleMatcher
	// matched this file but whose FunctionQuery never matched any
	// function in it.
	Failures []*errors.InjectionMatchFailure
}

// Transform rewrites one source file against the Orchestrator's catalog.
// moduleName/moduleVersion identify the file for ModuleMatcher purposes;
// path is matched against each InstrumentationConfig's FilePath and also
// threaded into reporting. flag selects ES module vs. CommonJS script
// form for the shared import prelude; Module and Script are used as
// given, and Unknown infers module form from a top-level import/export
// statement.
func (o *Orchestrator) Transform(path string, source []byte, moduleName, moduleVersion string, flag jsparse.ModuleFlag) (Result, error) {
	ctx := pipeline.NewPipelineContext(path, source, moduleName, moduleVersion, flag, o.cfg)

	p := pipeline.New(
		pipeline.ParseProcessor{},
		pipeline.MatchProcessor{Synth: o.synth},
		pipeline.SpliceProcessor{},
	)
	ctx = p.Run(ctx)

	if ctx.Err != nil {
		return Result{}, ctx.Err
	}
	if len(ctx.Failures) > 0 {
		return Result{Failures: ctx.Failures}, nil
	}
	return Result{Output: ctx.Output}, nil
}
