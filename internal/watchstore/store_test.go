package watchstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/errkind"
)

func TestAddListRemoveClear(t *testing.T) {
	dir := t.TempDir()
	var mutations int
	store, err := New(dir, func(owner, dumpID string) {
		mutations++
		assert.Equal(t, "alice", owner)
		assert.Equal(t, "d1", dumpID)
	})
	require.NoError(t, err)

	id1, err := store.Add("alice", "d1", "myVar")
	require.NoError(t, err)
	id2, err := store.Add("alice", "d1", "otherVar")
	require.NoError(t, err)

	watches, err := store.List("alice", "d1")
	require.NoError(t, err)
	require.Len(t, watches, 2)
	assert.Equal(t, "myVar", watches[0].Expression)

	has, err := store.HasAny("alice", "d1")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, store.Remove("alice", "d1", id1))
	watches, err = store.List("alice", "d1")
	require.NoError(t, err)
	require.Len(t, watches, 1)
	assert.Equal(t, id2, watches[0].ID)

	require.NoError(t, store.Clear("alice", "d1"))
	watches, err = store.List("alice", "d1")
	require.NoError(t, err)
	assert.Empty(t, watches)

	assert.Equal(t, 4, mutations)
}

func TestRemoveUnknownWatchReturnsNotFound(t *testing.T) {
	store, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	err = store.Remove("alice", "d1", "does-not-exist")
	assert.True(t, errkind.Is(err, errkind.KindNotFound))
}

func TestStorePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	store1, err := New(dir, nil)
	require.NoError(t, err)
	_, err = store1.Add("alice", "d1", "myVar")
	require.NoError(t, err)

	store2, err := New(dir, nil)
	require.NoError(t, err)
	watches, err := store2.List("alice", "d1")
	require.NoError(t, err)
	require.Len(t, watches, 1)
	assert.Equal(t, "myVar", watches[0].Expression)
}

func TestIsolatesDifferentDumpIDs(t *testing.T) {
	store, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	_, err = store.Add("alice", "d1", "a")
	require.NoError(t, err)
	_, err = store.Add("alice", "d2", "b")
	require.NoError(t, err)

	w1, err := store.List("alice", "d1")
	require.NoError(t, err)
	w2, err := store.List("alice", "d2")
	require.NoError(t, err)
	require.Len(t, w1, 1)
	require.Len(t, w2, 1)
	assert.Equal(t, "a", w1[0].Expression)
	assert.Equal(t, "b", w2[0].Expression)
}
