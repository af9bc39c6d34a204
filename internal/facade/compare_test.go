package facade

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/config"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/driver"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/pipeline"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/session"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/watchstore"
)

func TestCompareModulesReportsAddedAndRemoved(t *testing.T) {
	dataDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Service.DataDir = dataDir
	cfg.Service.DumpStorageDir = filepath.Join(dataDir, "dumps")
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Service.DumpStorageDir, "alice"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Service.DumpStorageDir, "alice", "base.dmp"), []byte("fake"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Service.DumpStorageDir, "alice", "other.dmp"), []byte("fake"), 0o644))

	sessions := session.NewManager(session.Options{})
	t.Cleanup(sessions.Shutdown)
	watches, err := watchstore.New(filepath.Join(dataDir, "watches"), nil)
	require.NoError(t, err)

	newDrv := func(dcfg config.DriverConfig, dumpPath string) (driver.Driver, error) {
		moduleList := "0x00007ffa00000000 libcoreclr.so  (6.0.1.0)\n"
		if filepath.Base(dumpPath) == "other.dmp" {
			moduleList = "0x00007ffa00000000 libcoreclr.so  (6.0.1.0)\n0x00007ffb00000000 libnewdep.so  (1.0.0.0)\n"
		}
		return &fakeDriver{responses: map[string]string{
			"thread list": "Thread 0 (LWP 100) \"main\" state=Running\n",
			"module list": moduleList,
		}}, nil
	}
	f := New(cfg, sessions, watches, noopLogger{}, newDrv)
	ctx := context.Background()

	base, err := f.CreateSession(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, f.OpenDump(ctx, "alice", base.ID, "base.dmp", ""))

	other, err := f.CreateSession(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, f.OpenDump(ctx, "alice", other.ID, "other.dmp", ""))

	cmp, err := f.Compare(ctx, "alice", base.ID, other.ID, CompareModules, AnalyzeOptions{Variant: pipeline.VariantCrash})
	require.NoError(t, err)
	assert.Equal(t, []string{"libnewdep.so"}, cmp.Added)
	assert.Empty(t, cmp.Removed)
}

func TestCompareDumpsRejectsUnknownMode(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()
	sess, err := f.CreateSession(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, f.OpenDump(ctx, "alice", sess.ID, "d1.dmp", ""))

	_, err = f.Compare(ctx, "alice", sess.ID, sess.ID, CompareMode("bogus"), AnalyzeOptions{})
	assert.Error(t, err)
}
