package debuginfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeLoader(calls *int) Loader {
	return func(debugFilePath string) (map[string][]SequencePoint, error) {
		*calls++
		return map[string][]SequencePoint{
			"0x06000012": {
				{Offset: 0, File: "Widget.cs", StartLine: 10, EndLine: 10},
				{Offset: 17, File: "Widget.cs", StartLine: 42, EndLine: 43},
				{Offset: 30, File: "Widget.cs", StartLine: 50, EndLine: 50},
			},
		}, nil
	}
}

func TestResolveReturnsGreatestOffsetNotExceedingQuery(t *testing.T) {
	dir := t.TempDir()
	modulePath := filepath.Join(dir, "MyApp.dll")
	require.NoError(t, os.WriteFile(modulePath, []byte("module"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "MyApp.pdb"), []byte("pdb"), 0o644))

	var calls int
	r := New(fakeLoader(&calls))

	loc, ok := r.Resolve(modulePath, "0x06000012", 20)
	require.True(t, ok)
	assert.Equal(t, 42, loc.StartLine)

	loc, ok = r.Resolve(modulePath, "0x06000012", 30)
	require.True(t, ok)
	assert.Equal(t, 50, loc.StartLine)

	_, ok = r.Resolve(modulePath, "0x06000012", -1)
	assert.False(t, ok)
}

func TestResolveUnknownTokenFails(t *testing.T) {
	dir := t.TempDir()
	modulePath := filepath.Join(dir, "MyApp.dll")
	require.NoError(t, os.WriteFile(modulePath, []byte("module"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "MyApp.pdb"), []byte("pdb"), 0o644))

	var calls int
	r := New(fakeLoader(&calls))
	_, ok := r.Resolve(modulePath, "0xdeadbeef", 0)
	assert.False(t, ok)
}

func TestLoadModuleCachesPerModule(t *testing.T) {
	dir := t.TempDir()
	modulePath := filepath.Join(dir, "MyApp.dll")
	require.NoError(t, os.WriteFile(modulePath, []byte("module"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "MyApp.pdb"), []byte("pdb"), 0o644))

	var calls int
	r := New(fakeLoader(&calls))
	_, _ = r.Resolve(modulePath, "0x06000012", 0)
	_, _ = r.Resolve(modulePath, "0x06000012", 17)
	assert.Equal(t, 1, calls)
}

func TestMissingDebugFileIsNegativelyCached(t *testing.T) {
	dir := t.TempDir()
	modulePath := filepath.Join(dir, "NoSymbols.dll")
	require.NoError(t, os.WriteFile(modulePath, []byte("module"), 0o644))

	var calls int
	r := New(fakeLoader(&calls))
	_, ok := r.Resolve(modulePath, "0x06000012", 0)
	assert.False(t, ok)
	assert.Equal(t, 0, calls)

	// Second resolve still misses, and still never invokes the loader
	// since the negative cache short-circuits findDebugFile.
	_, ok = r.Resolve(modulePath, "0x06000012", 0)
	assert.False(t, ok)
	assert.Equal(t, 0, calls)
}

func TestRegisterSearchPathFindsDebugFileRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "symbols", "v1")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "MyApp.pdb"), []byte("pdb"), 0o644))

	modulePath := filepath.Join(t.TempDir(), "MyApp.dll")
	require.NoError(t, os.WriteFile(modulePath, []byte("module"), 0o644))

	var calls int
	r := New(fakeLoader(&calls))
	r.RegisterSearchPath(root)

	loc, ok := r.Resolve(modulePath, "0x06000012", 0)
	require.True(t, ok)
	assert.Equal(t, "Widget.cs", loc.File)
	assert.Equal(t, 1, calls)
}
