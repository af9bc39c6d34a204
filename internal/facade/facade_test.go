package facade

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/config"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/driver"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/pipeline"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/session"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/watchstore"
)

type fakeDriver struct {
	responses map[string]string
	dumpOpen  bool
	extension bool
}

func (f *fakeDriver) Initialize(ctx context.Context) error { return nil }
func (f *fakeDriver) OpenDump(ctx context.Context, dumpPath, executablePath string) error {
	f.dumpOpen = true
	return nil
}
func (f *fakeDriver) CloseDump(ctx context.Context) error { f.dumpOpen = false; return nil }
func (f *fakeDriver) Execute(ctx context.Context, command string) (string, error) {
	for prefix, resp := range f.responses {
		if strings.HasPrefix(command, prefix) {
			return resp, nil
		}
	}
	return "", nil
}
func (f *fakeDriver) LoadExtension(ctx context.Context) error              { f.extension = true; return nil }
func (f *fakeDriver) ConfigureSymbolPath(ctx context.Context, s string) error { return nil }
func (f *fakeDriver) Dispose(ctx context.Context) error                    { return nil }
func (f *fakeDriver) IsInitialized() bool                                  { return true }
func (f *fakeDriver) IsDumpOpen() bool                                     { return f.dumpOpen }
func (f *fakeDriver) CurrentDumpPath() string                              { return "/dumps/a.dmp" }
func (f *fakeDriver) BackendFamily() driver.Family                         { return driver.FamilyLLDB }
func (f *fakeDriver) IsExtensionLoaded() bool                              { return f.extension }
func (f *fakeDriver) RuntimeFamilyDetected() string                        { return "dotnet" }
func (f *fakeDriver) State() driver.State                                  { return driver.StateDumpOpen }

func newTestFacade(t *testing.T) (*Facade, string) {
	t.Helper()
	dataDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Service.DataDir = dataDir
	cfg.Service.DumpStorageDir = filepath.Join(dataDir, "dumps")

	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Service.DumpStorageDir, "alice"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Service.DumpStorageDir, "alice", "d1.dmp"), []byte("fake"), 0o644))

	sessions := session.NewManager(session.Options{})
	t.Cleanup(sessions.Shutdown)

	watches, err := watchstore.New(filepath.Join(dataDir, "watches"), nil)
	require.NoError(t, err)

	newDrv := func(dcfg config.DriverConfig, dumpPath string) (driver.Driver, error) {
		return &fakeDriver{responses: map[string]string{
			"thread list": "Thread 0 (LWP 100) \"main\" state=Running\n",
		}}, nil
	}
	f := New(cfg, sessions, watches, noopLogger{}, newDrv)
	return f, dataDir
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

func TestSessionAndDumpLifecycle(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()

	sess, err := f.CreateSession(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, f.OpenDump(ctx, "alice", sess.ID, "d1.dmp", ""))

	doc, err := f.Analyze(ctx, "alice", sess.ID, AnalyzeOptions{Variant: pipeline.VariantCrash})
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Analysis.Threads.OSThreadCount)

	require.NoError(t, f.CloseDump(ctx, "alice", sess.ID))
	require.NoError(t, f.CloseSession(ctx, "alice", sess.ID))
}

func TestOwnerSanitizationRejectsBadChars(t *testing.T) {
	f, _ := newTestFacade(t)
	_, err := f.CreateSession(context.Background(), "alice/../bob")
	assert.Error(t, err)
}

func TestDumpIDSanitizationRejectsTraversal(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()
	sess, err := f.CreateSession(ctx, "alice")
	require.NoError(t, err)
	err = f.OpenDump(ctx, "alice", sess.ID, "../escape.dmp", "")
	assert.Error(t, err)
}

func TestGetSessionRejectsWrongOwner(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()
	sess, err := f.CreateSession(ctx, "alice")
	require.NoError(t, err)
	_, err = f.DebuggerInfo(ctx, "bob", sess.ID)
	assert.Error(t, err)
}

func TestWatchAddBumpsEpoch(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()
	sess, err := f.CreateSession(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, f.OpenDump(ctx, "alice", sess.ID, "d1.dmp", ""))

	before := sess.Epoch()
	_, err = f.AddWatch(ctx, "alice", sess.ID, "myVar")
	require.NoError(t, err)
	assert.Greater(t, sess.Epoch(), before)
}

// TestAnalyzeCachesAcrossIdenticalOptions is the S4-adjacent check that a
// second identical Analyze call for the same epoch reuses the cached report
// rather than re-running the pipeline (observed via distinct GeneratedAt
// across mutation epochs, and identical GeneratedAt within one).
func TestAnalyzeCachesAcrossIdenticalOptions(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()
	sess, err := f.CreateSession(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, f.OpenDump(ctx, "alice", sess.ID, "d1.dmp", ""))

	opts := AnalyzeOptions{Variant: pipeline.VariantCrash}
	r1, err := f.Analyze(ctx, "alice", sess.ID, opts)
	require.NoError(t, err)
	r2, err := f.Analyze(ctx, "alice", sess.ID, opts)
	require.NoError(t, err)
	assert.Equal(t, r1.Metadata.GeneratedAt, r2.Metadata.GeneratedAt)

	// S4: mutating symbol paths bumps the epoch, producing a fresh report.
	require.NoError(t, f.ConfigureAdditionalSymbolPaths(ctx, "alice", sess.ID, []string{"/symbols"}))
	r3, err := f.Analyze(ctx, "alice", sess.ID, opts)
	require.NoError(t, err)
	assert.NotEqual(t, r1.Metadata.GeneratedAt, r3.Metadata.GeneratedAt)
}
