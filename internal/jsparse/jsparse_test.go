package jsparse

import (
	"context"
	"testing"

	"github.com/orchestrion-go/weaver/internal/ast"
	"github.com/stretchr/testify/require"
)

func TestParseFunctionDeclaration(t *testing.T) {
	prog, err := Parse(context.Background(), "a.js", []byte("async function fetch(url) { return 1; }"), Script)
	require.NoError(t, err)
	require.Len(t, prog.Body, 1)
	fn, ok := prog.Body[0].(*ast.FunctionDeclaration)
	require.True(t, ok)
	require.Equal(t, "fetch", fn.Name)
	require.True(t, fn.IsAsync)
	require.True(t, fn.HasBody)
	require.Equal(t, "url", fn.Params)
}

func TestParseClassWithMethods(t *testing.T) {
	src := `class Undici {
  async fetch(a) { return 1; }
  constructor() { this.x = 1; }
}`
	prog, err := Parse(context.Background(), "a.js", []byte(src), Script)
	require.NoError(t, err)
	require.Len(t, prog.Body, 1)
	cls, ok := prog.Body[0].(*ast.ClassDeclaration)
	require.True(t, ok)
	require.Equal(t, "Undici", cls.Name)
	require.Len(t, cls.Methods, 2)

	var sawCtor, sawFetch bool
	for _, m := range cls.Methods {
		if m.MKind == ast.MethodConstructor {
			sawCtor = true
		}
		if m.Name == "fetch" {
			sawFetch = true
			require.True(t, m.IsAsync)
		}
	}
	require.True(t, sawCtor)
	require.True(t, sawFetch)
}

func TestParseUseStrictDirectiveOffset(t *testing.T) {
	src := "\"use strict\";\nfunction f() {}\n"
	prog, err := Parse(context.Background(), "a.js", []byte(src), Script)
	require.NoError(t, err)
	require.Equal(t, len("\"use strict\";"), prog.StrictTail)
}

func TestParseVariableDeclaratorFunctionExpression(t *testing.T) {
	src := "const fetch = function (url) { return 1; };"
	prog, err := Parse(context.Background(), "a.js", []byte(src), Script)
	require.NoError(t, err)
	require.Len(t, prog.Body, 1)
	vd, ok := prog.Body[0].(*ast.VariableDeclarator)
	require.True(t, ok)
	require.Equal(t, "fetch", vd.Name)
	require.NotNil(t, vd.Init)
	require.True(t, vd.Init.HasBody)
}

func TestParseRejectsSyntaxError(t *testing.T) {
	_, err := Parse(context.Background(), "a.js", []byte("function ("), Script)
	require.Error(t, err)
}

func TestParseDetectsESModule(t *testing.T) {
	prog, err := Parse(context.Background(), "a.js", []byte("import { x } from 'y';\nfunction f() {}"), Unknown)
	require.NoError(t, err)
	require.True(t, prog.IsModule)
}

func TestParseObjectMethodShorthand(t *testing.T) {
	src := "const obj = { run() { return 1; } };"
	prog, err := Parse(context.Background(), "a.js", []byte(src), Script)
	require.NoError(t, err)
	var found bool
	for _, n := range prog.Body {
		if op, ok := n.(*ast.ObjectProperty); ok && op.Key == "run" {
			found = true
			require.True(t, op.IsMethod)
			require.True(t, op.Value.HasBody)
		}
	}
	require.True(t, found)
}
