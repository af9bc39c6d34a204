package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Session.MaxSessionsPerOwner)
	assert.Equal(t, 50, cfg.Session.MaxSessionsTotal)
	assert.Equal(t, 1440, cfg.Session.InactivityTimeoutMin)
	assert.Equal(t, 300, cfg.Session.SweepIntervalSec)
}

func TestValidateRejectsBadBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Driver.Backend = "ghidra"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsOwnerQuotaOverGlobal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.MaxSessionsPerOwner = 100
	cfg.Session.MaxSessionsTotal = 50
	require.Error(t, cfg.Validate())
}

func TestStringSliceUnmarshalAcceptsScalarOrArray(t *testing.T) {
	var s StringSlice
	require.NoError(t, s.UnmarshalTOML("file"))
	assert.Equal(t, StringSlice{"file"}, s)

	var s2 StringSlice
	require.NoError(t, s2.UnmarshalTOML([]interface{}{"file", "stdout"}))
	assert.Equal(t, StringSlice{"file", "stdout"}, s2)

	var s3 StringSlice
	require.Error(t, s3.UnmarshalTOML(42))
}

func TestLoadFromStringMergesWithDefaults(t *testing.T) {
	cfg, err := LoadFromString(`
[session]
max_sessions_per_owner = 3
`)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Session.MaxSessionsPerOwner)
	assert.Equal(t, 50, cfg.Session.MaxSessionsTotal) // default retained
}

func TestDumpAndSymbolPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Service.DumpStorageDir = "/data/dumps"
	assert.Equal(t, filepath.Join("/data/dumps", "alice"), cfg.DumpDir("alice"))
	assert.Equal(t, filepath.Join("/data/dumps", "alice", ".symbols_d1"), cfg.SymbolCacheDir("alice", "d1"))
}

func TestCloneDeepCopiesSlices(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Symbols.AdditionalPaths = StringSlice{"/a"}
	clone := cfg.Clone()
	clone.Symbols.AdditionalPaths[0] = "/b"
	assert.Equal(t, "/a", cfg.Symbols.AdditionalPaths[0])
}
