// Package visitor implements the single-traversal fan-out driver of
// §4.4: one pass over the parsed program's candidate nodes visits every
// node once, invoking the matching hook on every Instrumentation in
// Config.instrumentations order. internal/jsparse flattens nested
// candidates into Program.Body, so every candidate is visited whatever
// the hooks return; the recurse result is consulted only for a class
// declaration, whose methods are visited iff at least one
// Instrumentation asked to recurse.
package visitor

import (
	"github.com/orchestrion-go/weaver/internal/ast"
	"github.com/orchestrion-go/weaver/internal/instrumentation"
	"github.com/orchestrion-go/weaver/internal/printer"
	"github.com/orchestrion-go/weaver/internal/wrapper"
)

// Run drives one fan-out traversal of prog against instrs (already in
// Config.instrumentations order) and returns the combined splice list:
// the shared channel-import prelude, followed by every Instrumentation's
// own splices in the order they were produced.
func Run(prog *ast.Program, instrs []*instrumentation.Instrumentation, synth *wrapper.Synthesizer) []printer.Splice {
	var splices []printer.Splice

	if len(instrs) > 0 {
		splices = append(splices, sharedImportSplice(prog, synth))
	}

	for _, instr := range instrs {
		instr.Reset()
		instr.VisitProgram(prog)
	}

	for _, node := range prog.Body {
		visitNode(node, instrs)
	}

	resolveOverlaps(instrs)

	for _, instr := range instrs {
		splices = append(splices, instr.Splices()...)
	}
	return splices
}

// resolveOverlaps enforces §4.4's Determinism invariant. instrs is
// already in Config.instrumentations order, so walking it in order and
// keeping the first body-rewrite splice that claims a given byte range
// implements "the first one in Config.instrumentations order rewrites
// the body." A later Instrumentation whose match would overlap an
// already-accepted rewrite is revoked rather than allowed to stack or
// silently disappear in printer.Apply.
func resolveOverlaps(instrs []*instrumentation.Instrumentation) {
	var accepted []printer.Splice
	for _, instr := range instrs {
		body, ok := instr.BodySplice()
		if !ok {
			continue
		}
		overlap := false
		for _, a := range accepted {
			if body.Start < a.End && a.Start < body.End {
				overlap = true
				break
			}
		}
		if overlap {
			instr.RevokeInjection()
			continue
		}
		accepted = append(accepted, body)
	}
}

// sharedImportSplice inserts the single channel-import statement at
// position 0 of a module body, or after a leading "use strict" directive
// in a script body, per §4.2.
func sharedImportSplice(prog *ast.Program, synth *wrapper.Synthesizer) printer.Splice {
	text := synth.ScriptImportPrelude()
	if prog.IsModule {
		text = synth.ModuleImportPrelude()
	}
	offset := prog.Rng.Start
	if !prog.IsModule && prog.StrictTail > 0 {
		offset = uint32(prog.StrictTail)
	}
	return printer.InsertionSplice(offset, text)
}

func visitNode(node ast.Node, instrs []*instrumentation.Instrumentation) {
	switch n := node.(type) {
	case *ast.FunctionDeclaration:
		fanOut(instrs, func(i *instrumentation.Instrumentation) bool { return i.VisitFunctionDeclaration(n) })
	case *ast.FunctionExpression:
		fanOut(instrs, func(i *instrumentation.Instrumentation) bool { return i.VisitFunctionExpression(n) })
	case *ast.VariableDeclarator:
		fanOut(instrs, func(i *instrumentation.Instrumentation) bool { return i.VisitVariableDeclarator(n) })
	case *ast.AssignmentExpression:
		fanOut(instrs, func(i *instrumentation.Instrumentation) bool { return i.VisitAssignmentExpression(n) })
	case *ast.ObjectProperty:
		fanOut(instrs, func(i *instrumentation.Instrumentation) bool { return i.VisitObjectProperty(n) })
	case *ast.ClassDeclaration:
		recurse := fanOut(instrs, func(i *instrumentation.Instrumentation) bool { return i.VisitClassDeclaration(n) })
		if recurse {
			for _, m := range n.Methods {
				fanOut(instrs, func(i *instrumentation.Instrumentation) bool { return i.VisitMethodDefinition(m) })
			}
		}
	}
}

// fanOut invokes visit on every Instrumentation and reports whether any
// of them asked to recurse.
func fanOut(instrs []*instrumentation.Instrumentation, visit func(*instrumentation.Instrumentation) bool) bool {
	recurse := false
	for _, i := range instrs {
		if visit(i) {
			recurse = true
		}
	}
	return recurse
}
