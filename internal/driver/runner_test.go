package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoVocabulary is a test-only Vocabulary backed by "cat", letting the
// Runner state machine be exercised against a real subprocess without a
// real debugger binary.
type echoVocabulary struct{}

func (echoVocabulary) Family() Family                 { return FamilyLLDB }
func (echoVocabulary) Argv(Options) []string          { return []string{"sh", "-c", "cat"} }
func (echoVocabulary) SentinelTemplate() string       { return "echo SENTINEL-%s" }
func (echoVocabulary) StartupProbe() string           { return "ready" }
func (echoVocabulary) CloseDumpCommand() string        { return "close" }
func (echoVocabulary) LoadExtensionCommand() string    { return "load" }
func (echoVocabulary) NormalizeCommand(c string) string { return c }

func (echoVocabulary) OpenDumpCommand(dumpPath, executablePath string) string {
	return "open " + dumpPath
}

func (echoVocabulary) ConfigureSymbolPathCommand(pathSpec string) string {
	return "sympath " + pathSpec
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	r := NewRunner(echoVocabulary{}, Options{StartupTimeout: 2 * time.Second, DefaultCommandTimeout: 2 * time.Second})
	t.Cleanup(func() { _ = r.Dispose(context.Background()) })
	return r
}

func TestRunnerLifecycleStateMachine(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	assert.Equal(t, StateSpawned, r.State())

	require.NoError(t, r.Initialize(ctx))
	assert.Equal(t, StateInitialized, r.State())
	assert.True(t, r.IsInitialized())

	// Idempotent.
	require.NoError(t, r.Initialize(ctx))
	assert.Equal(t, StateInitialized, r.State())

	require.NoError(t, r.OpenDump(ctx, "/dumps/a.dmp", ""))
	assert.Equal(t, StateDumpOpen, r.State())
	assert.True(t, r.IsDumpOpen())
	assert.Equal(t, "/dumps/a.dmp", r.CurrentDumpPath())

	out, err := r.Execute(ctx, "bt")
	require.NoError(t, err)
	assert.Contains(t, out, "bt")

	require.NoError(t, r.CloseDump(ctx))
	assert.Equal(t, StateInitialized, r.State())
	assert.Empty(t, r.CurrentDumpPath())

	require.NoError(t, r.Dispose(ctx))
	assert.Equal(t, StateDisposed, r.State())
}

func TestRunnerOpenDumpRequiresInitialized(t *testing.T) {
	r := newTestRunner(t)
	err := r.OpenDump(context.Background(), "/dumps/a.dmp", "")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestRunnerCloseDumpRequiresDumpOpen(t *testing.T) {
	r := newTestRunner(t)
	require.NoError(t, r.Initialize(context.Background()))
	err := r.CloseDump(context.Background())
	assert.ErrorIs(t, err, ErrNoDumpOpen)
}

func TestRunnerDisposeIsTerminalFromAnyState(t *testing.T) {
	r := newTestRunner(t)
	require.NoError(t, r.Dispose(context.Background()))
	assert.Equal(t, StateDisposed, r.State())
	// Calling again is a no-op, not an error.
	require.NoError(t, r.Dispose(context.Background()))
}
