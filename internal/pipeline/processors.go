package pipeline

import (
	"context"

	"github.com/orchestrion-go/weaver/internal/errors"
	"github.com/orchestrion-go/weaver/internal/instrumentation"
	"github.com/orchestrion-go/weaver/internal/jsparse"
	"github.com/orchestrion-go/weaver/internal/printer"
	"github.com/orchestrion-go/weaver/internal/visitor"
	"github.com/orchestrion-go/weaver/internal/wrapper"
)

// ParseProcessor turns ctx.Source into ctx.Program. A tree-sitter parse
// failure is fatal: it sets ctx.Err and every later stage no-ops.
type ParseProcessor struct{}

func (ParseProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Err != nil {
		return ctx
	}
	prog, err := jsparse.Parse(context.Background(), ctx.Path, ctx.Source, ctx.ModuleFlag)
	if err != nil {
		ctx.Err = err
		return ctx
	}
	ctx.Program = prog
	return ctx
}

// MatchProcessor selects the InstrumentationConfigs whose ModuleMatcher
// applies to this file, runs the single fan-out traversal against them,
// and records an InjectionMatchFailure for every one that never fired.
type MatchProcessor struct {
	Synth *wrapper.Synthesizer
}

func (p MatchProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Err != nil {
		return ctx
	}
	for _, ic := range ctx.Config.Instrumentations {
		if !ic.Module.Matches(ctx.ModuleName, ctx.ModuleVersion, ctx.Path) {
			continue
		}
		ctx.Matching = append(ctx.Matching, instrumentation.New(ic, p.Synth, ctx.Source, ctx.ModuleVersion))
	}

	ctx.Splices = visitor.Run(ctx.Program, ctx.Matching, p.Synth)

	for _, instr := range ctx.Matching {
		if !instr.HasInjected() {
			q := instr.Config.FunctionQuery
			ctx.Failures = append(ctx.Failures, errors.NewInjectionMatchFailure(
				instr.Config.Module.Name, instr.Config.ChannelName, ctx.Path, q.QueryName(), q.Index,
			))
		}
		instr.ResetHasInjected()
	}
	return ctx
}

// SpliceProcessor applies the accumulated edit list to the original
// source, producing the final transformed output. With zero splices
// this is a byte-identical copy of the input.
type SpliceProcessor struct{}

func (SpliceProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Err != nil {
		return ctx
	}
	ctx.Output = printer.Apply(ctx.Source, ctx.Splices)
	return ctx
}
