package query

import (
	"testing"

	"github.com/orchestrion-go/weaver/internal/ast"
	"github.com/stretchr/testify/require"
)

func TestMatchesDeclOrdinalityBasic(t *testing.T) {
	q := FunctionQuery{Variant: FunctionDeclaration, Name: "fetch", Kind: ast.KindAsync, Index: 0}
	count := 0
	fn := &ast.FunctionDeclaration{Name: "fetch", IsAsync: true}
	require.True(t, q.MatchesDecl(fn, &count))
}

func TestMatchesDeclWrongKindNeverIncrements(t *testing.T) {
	q := FunctionQuery{Variant: FunctionDeclaration, Name: "fetch", Kind: ast.KindSync, Index: 0}
	count := 0
	fn := &ast.FunctionDeclaration{Name: "fetch", IsAsync: true}
	require.False(t, q.MatchesDecl(fn, &count))
	require.Equal(t, 0, count, "count must not increment unless name/kind already match")
}

// TestOrdinalitySkipsEarlierCandidates mirrors spec scenario S2 and the
// ordinality invariant: with
// index=2 and three syntactically identical candidates, only the third
// is reported as a match, and count monotonically increases across the
// first two misses.
func TestOrdinalitySkipsEarlierCandidates(t *testing.T) {
	q := FunctionQuery{Variant: ClassMethod, ClassName: "Undici", Name: "fetch", Kind: ast.KindAsync, Index: 2}
	count := 0
	require.False(t, q.MatchesClassMethod(true, false, &count, "fetch"))
	require.Equal(t, 1, count)
	require.False(t, q.MatchesClassMethod(true, false, &count, "fetch"))
	require.Equal(t, 2, count)
	require.True(t, q.MatchesClassMethod(true, false, &count, "fetch"))
}

func TestGeneratorNeverMatches(t *testing.T) {
	for _, k := range []ast.FunctionKind{ast.KindSync, ast.KindAsync, ast.KindCallback} {
		require.False(t, k.Matches(false, true), "generator functions are never matched, kind=%v", k)
	}
}

func TestCallbackIgnoresAsyncFlag(t *testing.T) {
	require.True(t, ast.KindCallback.Matches(true, false))
	require.True(t, ast.KindCallback.Matches(false, false))
}

func TestConstructorQueryIgnoresFunctionKind(t *testing.T) {
	q := FunctionQuery{Variant: ClassConstructor, ClassName: "A", Index: 0}
	count := 0
	require.True(t, q.MatchesConstructor(&count))
}

func TestQueryNameUsesClassNameForConstructor(t *testing.T) {
	q := FunctionQuery{Variant: ClassConstructor, ClassName: "A"}
	require.Equal(t, "A", q.QueryName())
	q2 := FunctionQuery{Variant: FunctionDeclaration, Name: "fetch"}
	require.Equal(t, "fetch", q2.QueryName())
}
