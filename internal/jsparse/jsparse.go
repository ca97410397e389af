// Package jsparse builds the typed internal/ast tree the rest of the
// engine operates on, from a tree-sitter concrete syntax tree. It never
// builds a full JS grammar model — only the handful of constructs a
// FunctionQuery can target (§3): function declarations/expressions,
// class declarations and their methods, object-literal methods,
// variable declarators and simple assignments whose value is a
// function. Everything else passes through untouched as plain source
// bytes, which is what lets internal/printer satisfy the byte-for-byte
// no-op invariant.
package jsparse

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	weaverast "github.com/orchestrion-go/weaver/internal/ast"
	weavererrors "github.com/orchestrion-go/weaver/internal/errors"
)

// ModuleFlag controls which prelude form the Orchestrator emits and, at
// the grammar level, is advisory only — tree-sitter's JS grammar parses
// both module and script syntax uniformly.
type ModuleFlag int

const (
	Unknown ModuleFlag = iota
	Module
	Script
)

// Parse parses src and returns the typed Program tree. A tree-sitter
// parse error (a node carrying `.HasError()`) is surfaced as a
// *weavererrors.ParseFailure, never panics past this boundary.
func Parse(ctx context.Context, path string, src []byte, flag ModuleFlag) (prog *weaverast.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = weavererrors.NewParseFailure(path, fmt.Sprintf("panic in parser collaborator: %v", r))
		}
	}()

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())
	tree, parseErr := parser.ParseCtx(ctx, nil, src)
	if parseErr != nil {
		return nil, weavererrors.NewParseFailure(path, parseErr.Error())
	}
	root := tree.RootNode()
	if root.HasError() {
		return nil, weavererrors.NewParseFailure(path, "syntax error in source")
	}

	b := &builder{src: src}
	prog = &weaverast.Program{
		Rng:      rangeOf(root),
		IsModule: flag == Module || (flag == Unknown && hasTopLevelImportExport(root)),
	}
	prog.StrictTail = b.leadingDirectiveEnd(root)
	b.collect(root, &prog.Body)
	return prog, nil
}

func rangeOf(n *sitter.Node) weaverast.Range {
	return weaverast.Range{Start: n.StartByte(), End: n.EndByte()}
}

type builder struct {
	src []byte
}

func (b *builder) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(b.src[n.StartByte():n.EndByte()])
}

// leadingDirectiveEnd returns the byte offset right after a leading
// `"use strict";` expression-statement directive at the top of the
// program, or 0 if there isn't one.
func (b *builder) leadingDirectiveEnd(root *sitter.Node) int {
	if root.ChildCount() == 0 {
		return 0
	}
	first := root.Child(0)
	if first.Type() != "expression_statement" {
		return 0
	}
	if first.ChildCount() == 0 {
		return 0
	}
	lit := first.Child(0)
	if lit.Type() != "string" {
		return 0
	}
	content := b.text(lit)
	if content == `"use strict"` || content == `'use strict'` {
		return int(first.EndByte())
	}
	return 0
}

func hasTopLevelImportExport(root *sitter.Node) bool {
	for i := 0; i < int(root.ChildCount()); i++ {
		switch root.Child(i).Type() {
		case "import_statement", "export_statement":
			return true
		}
	}
	return false
}

// collect walks the tree (not just top-level statements) and appends
// every instrumentation-candidate node it finds, in document order,
// flattening nesting — a function declared inside another function's
// body still surfaces as its own top-level-looking entry in
// Program.Body — except where a class's methods must stay attached to
// their owning ClassDeclaration for is_correct_class scoping. Once a
// node is collected, only its `{ ... }` statement-block body (for a
// class, each method's body) is walked further; candidates nested
// elsewhere in it, such as inside a `key: function () {}` pair's value,
// an arrow function's expression body, or a class field initializer,
// are not collected.
func (b *builder) collect(n *sitter.Node, out *[]weaverast.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "function_declaration":
		*out = append(*out, b.functionDeclaration(n))
		b.collect(rawBody(n), out)
		return
	case "class_declaration", "class":
		cls := b.classDeclaration(n)
		*out = append(*out, cls)
		if body := n.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.ChildCount()); i++ {
				child := body.Child(i)
				if child.Type() == "method_definition" {
					b.collect(rawBody(child), out)
				}
			}
		}
		return
	case "function_expression", "generator_function", "arrow_function":
		// Bare function expressions not attached to a declarator or
		// assignment (e.g. IIFEs) are collected directly; named ones can
		// still be matched via NamedExpr.
		*out = append(*out, b.functionExpression(n))
		b.collect(rawBody(n), out)
		return
	case "variable_declarator":
		if vd := b.variableDeclarator(n); vd != nil {
			*out = append(*out, vd)
			b.collect(rawBody(n.ChildByFieldName("value")), out)
			return
		}
	case "assignment_expression":
		if ae := b.assignmentExpression(n); ae != nil {
			*out = append(*out, ae)
			b.collect(rawBody(n.ChildByFieldName("right")), out)
			return
		}
	case "pair", "method_definition":
		if n.Parent() != nil && n.Parent().Type() == "object" {
			if op := b.objectProperty(n); op != nil {
				*out = append(*out, op)
				b.collect(rawBody(n), out)
				return
			}
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		b.collect(n.Child(i), out)
	}
}

// rawBody returns a node's `{ ... }` statement-block body field, or nil
// if it has none (e.g. an arrow function with a bare expression body).
func rawBody(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	body := n.ChildByFieldName("body")
	if body == nil || body.Type() != "statement_block" {
		return nil
	}
	return body
}

func (b *builder) functionBody(n *sitter.Node) (*weaverast.FunctionBody, bool) {
	body := n.ChildByFieldName("body")
	if body == nil || body.Type() != "statement_block" {
		return nil, false
	}
	start, end := body.StartByte(), body.EndByte()
	inner := weaverast.FunctionBody{
		Rng:        weaverast.Range{Start: start, End: end},
		InnerStart: start + 1,
		InnerEnd:   end - 1,
	}
	if inner.InnerEnd < inner.InnerStart {
		inner.InnerEnd = inner.InnerStart
	}
	return &inner, true
}

func (b *builder) paramsText(n *sitter.Node) string {
	params := n.ChildByFieldName("parameters")
	if params == nil {
		return ""
	}
	text := b.text(params)
	if len(text) >= 2 && text[0] == '(' && text[len(text)-1] == ')' {
		return text[1 : len(text)-1]
	}
	return text
}

func (b *builder) functionDeclaration(n *sitter.Node) *weaverast.FunctionDeclaration {
	name := n.ChildByFieldName("name")
	body, hasBody := b.functionBody(n)
	return &weaverast.FunctionDeclaration{
		Rng:         rangeOf(n),
		Name:        b.text(name),
		Params:      b.paramsText(n),
		IsAsync:     hasAsyncChild(n),
		IsGenerator: n.Type() == "generator_function_declaration" || hasStarChild(n),
		Body:        body,
		HasBody:     hasBody,
	}
}

func (b *builder) functionExpression(n *sitter.Node) *weaverast.FunctionExpression {
	name := n.ChildByFieldName("name")
	body, hasBody := b.functionBody(n)
	return &weaverast.FunctionExpression{
		Rng:         rangeOf(n),
		NamedExpr:   b.text(name),
		Params:      b.paramsText(n),
		IsAsync:     hasAsyncChild(n),
		IsGenerator: n.Type() == "generator_function" || hasStarChild(n),
		Body:        body,
		HasBody:     hasBody,
		IsArrow:     n.Type() == "arrow_function",
	}
}

func hasAsyncChild(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "async" {
			return true
		}
	}
	return false
}

func hasStarChild(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "*" {
			return true
		}
	}
	return false
}

func (b *builder) classDeclaration(n *sitter.Node) *weaverast.ClassDeclaration {
	name := n.ChildByFieldName("name")
	bodyNode := n.ChildByFieldName("body")
	cls := &weaverast.ClassDeclaration{
		Rng:          rangeOf(n),
		Name:         b.text(name),
		IsExpression: n.Type() == "class",
	}
	if bodyNode != nil {
		cls.BodyStart = bodyNode.StartByte()
		for i := 0; i < int(bodyNode.ChildCount()); i++ {
			child := bodyNode.Child(i)
			if child.Type() != "method_definition" {
				continue
			}
			cls.Methods = append(cls.Methods, b.methodDefinition(child))
		}
	}
	return cls
}

func (b *builder) methodDefinition(n *sitter.Node) *weaverast.MethodDefinition {
	key := n.ChildByFieldName("name")
	body, hasBody := b.functionBody(n)
	mkind := weaverast.MethodOrdinary
	name := b.text(key)
	switch {
	case name == "constructor":
		mkind = weaverast.MethodConstructor
	case hasChildType(n, "get"):
		mkind = weaverast.MethodGetter
	case hasChildType(n, "set"):
		mkind = weaverast.MethodSetter
	case hasChildType(n, "static"):
		mkind = weaverast.MethodStatic
	}
	return &weaverast.MethodDefinition{
		Rng:         rangeOf(n),
		Name:        name,
		Params:      b.paramsText(n),
		IsAsync:     hasAsyncChild(n),
		IsGenerator: hasStarChild(n),
		MKind:       mkind,
		Body:        body,
		HasBody:     hasBody,
	}
}

func hasChildType(n *sitter.Node, typ string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == typ {
			return true
		}
	}
	return false
}

func (b *builder) objectProperty(n *sitter.Node) *weaverast.ObjectProperty {
	switch n.Type() {
	case "method_definition":
		key := n.ChildByFieldName("name")
		fnExpr := b.functionExpression(n)
		return &weaverast.ObjectProperty{
			Rng: rangeOf(n), Key: b.text(key), IsMethod: true, Value: fnExpr,
		}
	case "pair":
		key := n.ChildByFieldName("key")
		value := n.ChildByFieldName("value")
		if value == nil || !isFunctionType(value.Type()) {
			return nil
		}
		return &weaverast.ObjectProperty{
			Rng: rangeOf(n), Key: unquote(b.text(key)), IsMethod: false, Value: b.functionExpression(value),
		}
	}
	return nil
}

func isFunctionType(t string) bool {
	switch t {
	case "function_expression", "generator_function", "arrow_function":
		return true
	}
	return false
}

func (b *builder) variableDeclarator(n *sitter.Node) *weaverast.VariableDeclarator {
	name := n.ChildByFieldName("name")
	value := n.ChildByFieldName("value")
	if name == nil || name.Type() != "identifier" || value == nil || !isFunctionType(value.Type()) {
		return nil
	}
	return &weaverast.VariableDeclarator{
		Rng:  rangeOf(n),
		Name: b.text(name),
		Init: b.functionExpression(value),
	}
}

func (b *builder) assignmentExpression(n *sitter.Node) *weaverast.AssignmentExpression {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if left == nil || right == nil || !isFunctionType(right.Type()) {
		return nil
	}
	switch left.Type() {
	case "identifier":
		return &weaverast.AssignmentExpression{
			Rng: rangeOf(n), TargetKind: weaverast.TargetIdentifier, TargetName: b.text(left),
			Init: b.functionExpression(right),
		}
	case "member_expression":
		prop := left.ChildByFieldName("property")
		if prop == nil || prop.Type() != "property_identifier" {
			return nil
		}
		return &weaverast.AssignmentExpression{
			Rng: rangeOf(n), TargetKind: weaverast.TargetMember, TargetName: b.text(prop),
			Init: b.functionExpression(right),
		}
	}
	return nil
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
