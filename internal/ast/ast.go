// Package ast defines the typed JavaScript node set that internal/jsparse
// builds from a tree-sitter CST, and that internal/query, internal/wrapper
// and internal/visitor operate against. Every node carries the byte range
// it occupies in the original source, so internal/printer can splice
// replacement text in without re-serializing the whole program.
package ast

// Range is a half-open byte range [Start, End) into the original source.
type Range struct {
	Start uint32
	End   uint32
}

// Node is implemented by every AST node produced by internal/jsparse.
// Accept dispatches to the matching Visitor method and returns whether
// the traversal driver should recurse into this node's children — the
// same "return bool instead of calling visit_mut_children_with" shape
// the instrumented engine's matching core uses throughout.
type Node interface {
	Accept(v Visitor) bool
	ByteRange() Range
}

// Visitor fans a single traversal out to one method call per node kind.
// internal/instrumentation.Instrumentation implements it, holding that
// instrumentation's own mutable match state.
type Visitor interface {
	VisitProgram(n *Program) bool
	VisitFunctionDeclaration(n *FunctionDeclaration) bool
	VisitFunctionExpression(n *FunctionExpression) bool
	VisitClassDeclaration(n *ClassDeclaration) bool
	VisitMethodDefinition(n *MethodDefinition) bool
	VisitObjectProperty(n *ObjectProperty) bool
	VisitVariableDeclarator(n *VariableDeclarator) bool
	VisitAssignmentExpression(n *AssignmentExpression) bool
}

// FunctionKind is the intended calling convention of a matched function —
// not merely its own async/generator shape. Callback matches any
// non-generator function regardless of its async flag, since it denotes
// how the *caller* invokes it, not how the function itself is declared.
type FunctionKind int

const (
	KindSync FunctionKind = iota
	KindAsync
	KindCallback
)

// Matches reports whether a candidate function's own async/generator
// flags satisfy this FunctionKind, per §4.1: Sync ↔ !async && !generator;
// Async ↔ async && !generator; Callback ↔ !generator (async ignored).
// Generator functions are never matched, by design.
func (k FunctionKind) Matches(isAsync, isGenerator bool) bool {
	if isGenerator {
		return false
	}
	switch k {
	case KindSync:
		return !isAsync
	case KindAsync:
		return isAsync
	case KindCallback:
		return true
	default:
		return false
	}
}

// Operator returns the tracing-library operator name this kind maps to
// at code-generation time.
func (k FunctionKind) Operator() string {
	switch k {
	case KindAsync:
		return "tracePromise"
	case KindCallback:
		return "traceCallback"
	default:
		return "traceSync"
	}
}

// Program is the root node: the whole parsed module or script.
type Program struct {
	Rng        Range
	Body       []Node
	IsModule   bool // ES module (has import/export) vs. CommonJS script
	StrictTail int  // byte offset right after a leading "use strict" directive, 0 if none
}

func (n *Program) ByteRange() Range  { return n.Rng }
func (n *Program) Accept(v Visitor) bool {
	return v.VisitProgram(n)
}

// FunctionBody wraps the byte range of a function's `{ ... }` block so
// WrapperSynthesizer can splice its statements without reparsing them.
type FunctionBody struct {
	Rng        Range // range of the full "{ ... }" block, braces included
	InnerStart uint32
	InnerEnd   uint32
}

// FunctionDeclaration is `function name(...) { ... }` at statement position.
type FunctionDeclaration struct {
	Rng         Range
	Name        string
	Params      string // raw parameter-list text, parens excluded
	IsAsync     bool
	IsGenerator bool
	Body        *FunctionBody
	HasBody     bool
}

func (n *FunctionDeclaration) ByteRange() Range { return n.Rng }
func (n *FunctionDeclaration) Accept(v Visitor) bool {
	return v.VisitFunctionDeclaration(n)
}

// FunctionExpression is `function name(...) { ... }` used as a value,
// e.g. the right-hand side of a `const`/`let`/`var` declarator or of a
// simple assignment expression. The name to query against is supplied by
// the caller (the VariableDeclarator/AssignmentExpression visit passes
// the inferred name to the matcher) since a function expression has no
// name of its own unless NamedExpr is set.
type FunctionExpression struct {
	Rng         Range
	NamedExpr   string // non-empty if the expression itself carries a name
	Params      string // raw parameter-list text, parens excluded
	IsAsync     bool
	IsGenerator bool
	Body        *FunctionBody
	HasBody     bool
	IsArrow     bool
}

func (n *FunctionExpression) ByteRange() Range { return n.Rng }
func (n *FunctionExpression) Accept(v Visitor) bool {
	return v.VisitFunctionExpression(n)
}

// ClassDeclaration is `class Name extends ... { ... }` (declaration or
// expression form — both share this node; IsExpression distinguishes).
type ClassDeclaration struct {
	Rng         Range
	Name        string
	IsExpression bool
	Methods     []*MethodDefinition
	BodyStart   uint32 // byte offset of the '{' opening the class body
}

func (n *ClassDeclaration) ByteRange() Range { return n.Rng }
func (n *ClassDeclaration) Accept(v Visitor) bool {
	return v.VisitClassDeclaration(n)
}

// MethodKind distinguishes a constructor from an ordinary method, getter
// or setter within a class body.
type MethodKind int

const (
	MethodOrdinary MethodKind = iota
	MethodConstructor
	MethodGetter
	MethodSetter
	MethodStatic
)

// MethodDefinition is one method entry inside a ClassDeclaration's body.
type MethodDefinition struct {
	Rng         Range
	Name        string
	Params      string // raw parameter-list text, parens excluded
	IsAsync     bool
	IsGenerator bool
	MKind       MethodKind
	Body        *FunctionBody
	HasBody     bool
}

func (n *MethodDefinition) ByteRange() Range { return n.Rng }
func (n *MethodDefinition) Accept(v Visitor) bool {
	return v.VisitMethodDefinition(n)
}

// ObjectProperty is one `key: function(...) {...}` or `key() {...}` entry
// of an object literal — an ObjectMethod candidate per the query taxonomy.
type ObjectProperty struct {
	Rng      Range
	Key      string
	IsMethod bool // shorthand `key() {}` form vs. `key: function(){}`
	Value    *FunctionExpression
}

func (n *ObjectProperty) ByteRange() Range { return n.Rng }
func (n *ObjectProperty) Accept(v Visitor) bool {
	return v.VisitObjectProperty(n)
}

// VariableDeclarator is one `name = <init>` binding inside a
// `const`/`let`/`var` declaration; Init is non-nil and a
// FunctionExpression only when the initializer is a function value.
type VariableDeclarator struct {
	Rng  Range
	Name string
	Init *FunctionExpression // nil unless the initializer is a function
}

func (n *VariableDeclarator) ByteRange() Range { return n.Rng }
func (n *VariableDeclarator) Accept(v Visitor) bool {
	return v.VisitVariableDeclarator(n)
}

// AssignmentTargetKind distinguishes the two name-inference cases the
// engine supports for `x = function(){}` / `obj.prop = function(){}`.
type AssignmentTargetKind int

const (
	TargetIdentifier AssignmentTargetKind = iota
	TargetMember
)

// AssignmentExpression is a simple assignment whose right-hand side is a
// function expression, e.g. `exports.foo = function () {}`.
type AssignmentExpression struct {
	Rng        Range
	TargetKind AssignmentTargetKind
	TargetName string // identifier name, or the member's property name
	Init       *FunctionExpression
}

func (n *AssignmentExpression) ByteRange() Range { return n.Rng }
func (n *AssignmentExpression) Accept(v Visitor) bool {
	return v.VisitAssignmentExpression(n)
}
