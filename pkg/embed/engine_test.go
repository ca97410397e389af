package weaver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testCatalog = `
version: 1
instrumentations:
  - module_name: undici
    version_range: "*"
    file_path: a.js
    channel_name: fetch_decl
    function_query:
      type: decl
      name: fetch
      kind: sync
`

func TestNewFromYAMLTransformsAMatchingFile(t *testing.T) {
	engine, err := NewFromYAML([]byte(testCatalog))
	require.NoError(t, err)

	src := []byte("function fetch(url) { return 1; }")
	res, err := engine.Transform("a.js", src, "undici", "5.0.0", Script)
	require.NoError(t, err)
	require.Empty(t, res.Failures)
	require.Contains(t, string(res.Output), "tr_ch_apm$fetch_decl")
}

func TestNewFromYAMLRejectsBadEnvelope(t *testing.T) {
	_, err := NewFromYAML([]byte("version: 2\n"))
	require.Error(t, err)
}

func TestTransformFileWritesOutputOnSuccess(t *testing.T) {
	engine, err := NewFromYAML([]byte(testCatalog))
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "a.js")
	require.NoError(t, os.WriteFile(path, []byte("function fetch(url) { return 1; }"), 0o644))

	res, err := engine.TransformFile(path, "undici", "5.0.0", Script)
	require.NoError(t, err)
	require.Empty(t, res.Failures)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, res.Output, written)
}

func TestTransformFileLeavesFileUntouchedOnFailure(t *testing.T) {
	engine, err := NewFromYAML([]byte(testCatalog))
	require.NoError(t, err)

	// TransformFile matches the path it is given against the catalog's
	// relative file_path "a.js", so the file is addressed relative to dir.
	dir := t.TempDir()
	t.Chdir(dir)
	path := "a.js"
	original := []byte("function other() { return 1; }")
	require.NoError(t, os.WriteFile(path, original, 0o644))

	res, err := engine.TransformFile(path, "undici", "5.0.0", Script)
	require.NoError(t, err)
	require.NotEmpty(t, res.Failures)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, original, written)
}

func TestVersionReportsConfigVersion(t *testing.T) {
	require.NotEmpty(t, Version())
}
