package symbols

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCacheWatcherFiresOnFileDrop(t *testing.T) {
	dir := t.TempDir()
	var invalidations int32

	w, err := NewCacheWatcher("sess-1", dir, func(sessionID string) {
		require.Equal(t, "sess-1", sessionID)
		atomic.AddInt32(&invalidations, 1)
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "dropped.pdb"), []byte("data"), 0o644))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&invalidations) >= 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestCacheWatcherStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := NewCacheWatcher("sess-1", dir, func(string) {})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
