package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/driver"
)

// fakeDriver is a minimal driver.Driver stand-in that answers a fixed set
// of commands, letting the pipeline's orchestration be exercised without a
// real debugger subprocess.
type fakeDriver struct {
	responses map[string]string
	extension bool
}

func (f *fakeDriver) Initialize(ctx context.Context) error { return nil }
func (f *fakeDriver) OpenDump(ctx context.Context, dumpPath, executablePath string) error {
	return nil
}
func (f *fakeDriver) CloseDump(ctx context.Context) error { return nil }
func (f *fakeDriver) Execute(ctx context.Context, command string) (string, error) {
	for prefix, resp := range f.responses {
		if strings.HasPrefix(command, prefix) {
			return resp, nil
		}
	}
	return "", nil
}
func (f *fakeDriver) LoadExtension(ctx context.Context) error          { f.extension = true; return nil }
func (f *fakeDriver) ConfigureSymbolPath(ctx context.Context, s string) error { return nil }
func (f *fakeDriver) Dispose(ctx context.Context) error                { return nil }
func (f *fakeDriver) IsInitialized() bool                              { return true }
func (f *fakeDriver) IsDumpOpen() bool                                 { return true }
func (f *fakeDriver) CurrentDumpPath() string                          { return "/dumps/a.dmp" }
func (f *fakeDriver) BackendFamily() driver.Family                     { return driver.FamilyLLDB }
func (f *fakeDriver) IsExtensionLoaded() bool                          { return f.extension }
func (f *fakeDriver) RuntimeFamilyDetected() string                    { return "dotnet" }
func (f *fakeDriver) State() driver.State                              { return driver.StateDumpOpen }

func TestPipelineRunEndsInCachedStateWithNoBackend(t *testing.T) {
	p := New()
	doc, err := p.Run(context.Background(), Inputs{DumpID: "d1", UserID: "u1"}, VariantCrash)
	require.NoError(t, err)
	assert.Equal(t, StateCached, p.State())
	assert.NotEmpty(t, doc.Analysis.Diagnostics)
}

func TestPipelineRunCollectsThreadsAndBacktraces(t *testing.T) {
	d := &fakeDriver{responses: map[string]string{
		"thread list":   "Thread 0 (LWP 100) \"main\" state=Running\n",
		"backtrace 100": "frame #0: 0x1000 myapp`main() at main.c:10\n",
		"module list":   "0x00007ffa00000000 libcoreclr.so  (6.0.1.0)\n",
	}}

	p := New()
	doc, err := p.Run(context.Background(), Inputs{
		Drv: d, DebuggerFamily: "lldb", DumpID: "d1", UserID: "u1",
	}, VariantCrash)
	require.NoError(t, err)

	require.Len(t, doc.Analysis.Threads.All, 1)
	thread := doc.Analysis.Threads.All[0]
	require.Len(t, thread.CallStack, 1)
	assert.Equal(t, "myapp", thread.CallStack[0].Module)
	assert.Equal(t, "main.c", thread.CallStack[0].SourceFile)
	assert.Equal(t, 10, thread.CallStack[0].LineNumber)
	assert.Equal(t, 1, doc.Analysis.Threads.OSThreadCount)
	assert.Len(t, doc.Analysis.Modules, 1)
}
