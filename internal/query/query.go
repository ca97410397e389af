// Package query implements FunctionQuery, the tagged-union predicate
// that decides whether a given AST function node is the one a
// configured instrumentation targets.
package query

import "github.com/orchestrion-go/weaver/internal/ast"

// VariantKind is the tag of the FunctionQuery union.
type VariantKind int

const (
	ClassConstructor VariantKind = iota
	ClassMethod
	ObjectMethod
	FunctionDeclaration
	FunctionExpression
)

// FunctionQuery is the tagged union over the five ways a configured
// instrumentation can target a function: a class's constructor, a named
// class method, a named object-literal method, a function declaration
// (nested ones included), or a (possibly inferred) named function
// expression.
//
// Index is the zero-based ordinal among syntactically identical
// candidates in the file — e.g. the third method named "fetch" on class
// "Undici" is targeted with Index: 2. It defaults to 0.
type FunctionQuery struct {
	Variant   VariantKind
	ClassName string // ClassConstructor, ClassMethod
	Name      string // ClassMethod, ObjectMethod, FunctionDeclaration, FunctionExpression
	Kind      ast.FunctionKind
	Index     int
}

// QueryName returns the identifying name surfaced in InjectionMatchFailure
// reporting: the constructor's class name, or the function/method name.
func (q FunctionQuery) QueryName() string {
	if q.Variant == ClassConstructor {
		return q.ClassName
	}
	return q.Name
}

// maybeIncrementCount implements the shared ordinal bookkeeping from
// §4.1: if the structural/name predicate holds but the ordinal doesn't
// match yet, bump count and report no match; otherwise leave count
// untouched.
func maybeIncrementCount(matchesExceptCount bool, index int, count *int) bool {
	if !matchesExceptCount {
		return false
	}
	if *count == index {
		return true
	}
	*count++
	return false
}

// MatchesDecl tests a function declaration, whether at the top level or
// nested inside another function's body.
func (q FunctionQuery) MatchesDecl(fn *ast.FunctionDeclaration, count *int) bool {
	matches := q.Variant == FunctionDeclaration &&
		q.Kind.Matches(fn.IsAsync, fn.IsGenerator) &&
		fn.Name == q.Name
	return maybeIncrementCount(matches, q.Index, count)
}

// MatchesExpr tests a function expression against an inferred name (from
// a variable declarator or a simple assignment target).
func (q FunctionQuery) MatchesExpr(fn *ast.FunctionExpression, count *int, name string) bool {
	matches := q.Variant == FunctionExpression &&
		q.Kind.Matches(fn.IsAsync, fn.IsGenerator) &&
		name == q.Name
	return maybeIncrementCount(matches, q.Index, count)
}

// MatchesClassMethod tests an ordinary class method (not the
// constructor) by name and kind only. The caller (Instrumentation) is
// responsible for only calling this while its is_correct_class scope
// flag is set — class-name matching happens once, on class entry, not
// per-method, mirroring the original engine's split of responsibility.
func (q FunctionQuery) MatchesClassMethod(isAsync, isGenerator bool, count *int, name string) bool {
	matches := q.Variant == ClassMethod &&
		q.Kind.Matches(isAsync, isGenerator) &&
		name == q.Name
	return maybeIncrementCount(matches, q.Index, count)
}

// MatchesConstructor tests a class constructor, gated the same way:
// the caller must only invoke this while is_correct_class is set and
// the query variant is ClassConstructor. Only ordinal applies — a
// constructor has no FunctionKind filter.
func (q FunctionQuery) MatchesConstructor(count *int) bool {
	matches := q.Variant == ClassConstructor
	return maybeIncrementCount(matches, q.Index, count)
}

// MatchesMethodProp tests an object-literal method.
func (q FunctionQuery) MatchesMethodProp(isAsync, isGenerator bool, count *int, name string) bool {
	matches := q.Variant == ObjectMethod &&
		q.Kind.Matches(isAsync, isGenerator) &&
		name == q.Name
	return maybeIncrementCount(matches, q.Index, count)
}
