// Package instrumentation implements Instrumentation, the runtime object
// that pairs one InstrumentationConfig with per-traversal match state and
// the ast.Visitor hooks that drive matching and rewriting as the single
// fan-out pass visits the program.
package instrumentation

import (
	"github.com/orchestrion-go/weaver/internal/ast"
	"github.com/orchestrion-go/weaver/internal/config"
	"github.com/orchestrion-go/weaver/internal/printer"
	"github.com/orchestrion-go/weaver/internal/query"
	"github.com/orchestrion-go/weaver/internal/wrapper"
)

// Instrumentation owns one InstrumentationConfig plus the mutable state
// a single traversal accumulates against it: the ordinal counter, the
// coarse "are we inside the targeted class" scope flag, and whether the
// configured rewrite has fired yet.
type Instrumentation struct {
	Config InstrumentationConfig
	synth  *wrapper.Synthesizer
	source []byte

	count          int
	isCorrectClass bool
	hasInjected    bool
	moduleVersion  string

	splices []printer.Splice
}

// InstrumentationConfig is re-exported under this package for call-site
// convenience; it is identical to config.InstrumentationConfig.
type InstrumentationConfig = config.InstrumentationConfig

// New constructs an Instrumentation over one config, ready to visit one
// program. source is the original file bytes, needed to slice a matched
// function's body text for the wrapper rewrite. moduleVersion is the
// caller-supplied version string, threaded into the generated
// moduleVersion context property when non-empty.
func New(cfg InstrumentationConfig, synth *wrapper.Synthesizer, source []byte, moduleVersion string) *Instrumentation {
	return &Instrumentation{Config: cfg, synth: synth, source: source, moduleVersion: moduleVersion}
}

// HasInjected reports whether this Instrumentation's rewrite fired
// during the most recent traversal.
func (i *Instrumentation) HasInjected() bool { return i.hasInjected }

// Splices returns the edits accumulated during the most recent
// traversal: the per-instrumentation channel prelude, plus the body
// rewrite of whichever function matched (at most one: once
// `has_injected` is true, later matches are not rewritten, though
// traversal itself continues per node-kind independently).
func (i *Instrumentation) Splices() []printer.Splice { return i.splices }

// BodySplice returns this Instrumentation's function-body rewrite splice
// (a non-zero-width replacement), as opposed to its zero-width channel-
// prelude insertion. Used by the visitor driver to detect two
// Instrumentations rewriting overlapping byte ranges (§4.4 Determinism).
func (i *Instrumentation) BodySplice() (printer.Splice, bool) {
	for _, s := range i.splices {
		if s.Start < s.End {
			return s, true
		}
	}
	return printer.Splice{}, false
}

// RevokeInjection undoes a rewrite superseded by an overlapping, higher-
// priority Instrumentation earlier in Config.instrumentations order
// (§4.4 Determinism, option (b): forbid the overlap rather than stack
// it). has_injected is cleared and the body-rewrite splice is dropped,
// so this Instrumentation is reported as an ordinary InjectionMatchFailure
// by MatchProcessor instead of silently losing its rewrite to
// printer.Apply's overlap guard.
func (i *Instrumentation) RevokeInjection() {
	i.hasInjected = false
	kept := i.splices[:0]
	for _, s := range i.splices {
		if s.Start == s.End {
			kept = append(kept, s)
		}
	}
	i.splices = kept
}

// Reset clears the ordinal counter and class-scope flag between program
// traversals. It deliberately does NOT clear has_injected — see
// ResetHasInjected.
func (i *Instrumentation) Reset() {
	i.count = 0
	i.isCorrectClass = false
	i.splices = nil
}

// ResetHasInjected clears has_injected once the Orchestrator has read it
// to compute the failure list, allowing the Instrumentation to be reused
// for a subsequent transform.
func (i *Instrumentation) ResetHasInjected() {
	i.hasInjected = false
}

func (i *Instrumentation) sanitizedID() string {
	return i.Config.SanitizedChannelName()
}

func (i *Instrumentation) bodyText(body *ast.FunctionBody) string {
	return string(i.source[body.InnerStart:body.InnerEnd])
}

// VisitProgram inserts this Instrumentation's channel-binding prelude at
// index 1 of a module body, or at start_index+1 of a script body — the
// shared import itself is emitted once by the driver, not here.
func (i *Instrumentation) VisitProgram(n *ast.Program) bool {
	prelude := i.synth.ChannelPrelude(i.sanitizedID(), i.Config.Module.Name, i.Config.ChannelName)
	insertAt := i.preludeOffset(n)
	i.splices = append(i.splices, printer.InsertionSplice(insertAt, prelude))
	return true
}

// preludeOffset locates the byte offset to insert this instrumentation's
// prelude at: the shared import's own insertion point (the start of a
// module, or right after a leading directive in a script). The driver
// lists the shared import ahead of every prelude and printer.Apply keeps
// that order for splices at one offset, so the prelude lands right after
// the import, matching §4.2's "index 1" / "start_index+1" rule.
func (i *Instrumentation) preludeOffset(n *ast.Program) uint32 {
	if !n.IsModule && n.StrictTail > 0 {
		return uint32(n.StrictTail)
	}
	return n.Rng.Start
}

func (i *Instrumentation) matchesModuleVersion() string {
	return i.moduleVersion
}

// VisitFunctionDeclaration applies the standard wrapper to a function
// declaration (top-level or nested) when the query's structural/name/ordinal
// predicate holds.
func (i *Instrumentation) VisitFunctionDeclaration(n *ast.FunctionDeclaration) bool {
	if !n.HasBody {
		return true
	}
	if i.Config.FunctionQuery.MatchesDecl(n, &i.count) {
		i.rewriteStandard(n.Body, n.Params, n.IsAsync)
	}
	return true
}

// VisitFunctionExpression handles a named function expression reached
// directly by the driver (e.g. an IIFE); anonymous/var-bound/assigned
// expressions are matched via VisitVariableDeclarator /
// VisitAssignmentExpression instead, which supply the inferred name.
func (i *Instrumentation) VisitFunctionExpression(n *ast.FunctionExpression) bool {
	if n.NamedExpr == "" || !n.HasBody {
		return true
	}
	if i.Config.FunctionQuery.MatchesExpr(n, &i.count, n.NamedExpr) {
		i.rewriteStandard(n.Body, n.Params, n.IsAsync)
	}
	return true
}

// VisitClassDeclaration sets is_correct_class for the duration of this
// class's methods. Per the original engine's documented behavior (see
// DESIGN.md's Open Question entry), this flag is never restored on class
// exit, and a class with no matching name does not clear it — once set,
// is_correct_class stays set for every later class until Reset at the
// start of the next traversal.
func (i *Instrumentation) VisitClassDeclaration(n *ast.ClassDeclaration) bool {
	q := i.Config.FunctionQuery
	hasClassFilter := q.Variant == query.ClassConstructor || q.Variant == query.ClassMethod
	if !hasClassFilter || q.ClassName == n.Name {
		i.isCorrectClass = true
	}
	return true
}

// VisitMethodDefinition dispatches to constructor or standard-method
// matching depending on the method's own kind, gated on is_correct_class.
func (i *Instrumentation) VisitMethodDefinition(n *ast.MethodDefinition) bool {
	if !i.isCorrectClass || !n.HasBody {
		return false
	}
	q := i.Config.FunctionQuery
	if n.MKind == ast.MethodConstructor {
		if q.MatchesConstructor(&i.count) {
			i.rewriteConstructor(n.Body)
		}
		return false
	}
	if q.MatchesClassMethod(n.IsAsync, n.IsGenerator, &i.count, n.Name) {
		i.rewriteStandard(n.Body, n.Params, n.IsAsync)
	}
	return true
}

// VisitObjectProperty matches object-literal methods (`key() {}` and
// `key: function(){}` forms alike).
func (i *Instrumentation) VisitObjectProperty(n *ast.ObjectProperty) bool {
	if n.Value == nil || !n.Value.HasBody {
		return false
	}
	if i.Config.FunctionQuery.MatchesMethodProp(n.Value.IsAsync, n.Value.IsGenerator, &i.count, n.Key) {
		i.rewriteStandard(n.Value.Body, n.Value.Params, n.Value.IsAsync)
	}
	return false
}

// VisitVariableDeclarator infers a function expression's name from its
// binding identifier: `const fetch = function () {}`.
func (i *Instrumentation) VisitVariableDeclarator(n *ast.VariableDeclarator) bool {
	if n.Init == nil || !n.Init.HasBody {
		return true
	}
	traced := i.traceExprOrCount(n.Init, n.Name)
	return !traced
}

// VisitAssignmentExpression infers a function expression's name from a
// simple identifier or member-property assignment target:
// `exports.foo = function () {}`. Destructuring, computed properties,
// private fields and super-rooted targets are unsupported and silently
// left untouched, per §9.
func (i *Instrumentation) VisitAssignmentExpression(n *ast.AssignmentExpression) bool {
	if n.Init == nil || !n.Init.HasBody {
		return true
	}
	traced := i.traceExprOrCount(n.Init, n.TargetName)
	return !traced
}

func (i *Instrumentation) traceExprOrCount(fn *ast.FunctionExpression, name string) bool {
	if i.Config.FunctionQuery.MatchesExpr(fn, &i.count, name) {
		i.rewriteStandard(fn.Body, fn.Params, fn.IsAsync)
		return true
	}
	return false
}

func (i *Instrumentation) rewriteStandard(body *ast.FunctionBody, params string, isAsync bool) {
	if i.hasInjected {
		return
	}
	text := i.synth.StandardWrapper(i.bodyText(body), params, i.sanitizedID(), i.Config.FunctionQuery.Kind, isAsync, i.matchesModuleVersion())
	i.splices = append(i.splices, printer.Splice{Start: body.InnerStart, End: body.InnerEnd, Replacement: text})
	i.hasInjected = true
}

func (i *Instrumentation) rewriteConstructor(body *ast.FunctionBody) {
	if i.hasInjected {
		return
	}
	text := i.synth.ConstructorWrapper(i.bodyText(body), i.sanitizedID(), i.matchesModuleVersion())
	i.splices = append(i.splices, printer.Splice{Start: body.InnerStart, End: body.InnerEnd, Replacement: text})
	i.hasInjected = true
}
