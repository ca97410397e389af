package cache

import (
	"testing"

	"github.com/orchestrion-go/weaver/internal/errors"
	"github.com/orchestrion-go/weaver/internal/orchestrator"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestLookupMissOnEmptyCache(t *testing.T) {
	c := openTestCache(t)
	_, ok, err := c.Lookup("m", "1.0.0", "a.js", []byte("x"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreThenLookupHit(t *testing.T) {
	c := openTestCache(t)
	source := []byte("function f() {}")
	want := orchestrator.Result{
		Output: []byte("instrumented"),
		Failures: []*errors.InjectionMatchFailure{
			errors.NewInjectionMatchFailure("m", "ch", "a.js", "f", 0),
		},
	}
	require.NoError(t, c.Store("m", "1.0.0", "a.js", source, want))

	got, ok, err := c.Lookup("m", "1.0.0", "a.js", source)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want.Output, got.Output)
	require.Len(t, got.Failures, 1)
	require.Equal(t, want.Failures[0].ChannelName, got.Failures[0].ChannelName)
}

func TestDifferentSourceHashIsAMiss(t *testing.T) {
	c := openTestCache(t)
	require.NoError(t, c.Store("m", "1.0.0", "a.js", []byte("v1"), orchestrator.Result{Output: []byte("out")}))
	_, ok, err := c.Lookup("m", "1.0.0", "a.js", []byte("v2"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreOverwritesPriorEntry(t *testing.T) {
	c := openTestCache(t)
	source := []byte("same")
	require.NoError(t, c.Store("m", "1.0.0", "a.js", source, orchestrator.Result{Output: []byte("first")}))
	require.NoError(t, c.Store("m", "1.0.0", "a.js", source, orchestrator.Result{Output: []byte("second")}))

	got, ok, err := c.Lookup("m", "1.0.0", "a.js", source)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("second"), got.Output)
}
