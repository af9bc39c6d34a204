package crashindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndSimilarToExcludesSelf(t *testing.T) {
	idx := New()
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, "alice", Entry{DumpID: "d1", CrashType: "NullReferenceException", Summary: "null reference in Foo.Bar"}))
	require.NoError(t, idx.Add(ctx, "alice", Entry{DumpID: "d2", CrashType: "NullReferenceException", Summary: "null reference in Foo.Baz"}))

	assert.Equal(t, 2, idx.Count("alice"))

	similar, err := idx.SimilarTo(ctx, "alice", "d1", "null reference in Foo", 5)
	require.NoError(t, err)
	for _, e := range similar {
		assert.NotEqual(t, "d1", e.DumpID)
	}
}

func TestSimilarToScopedPerOwner(t *testing.T) {
	idx := New()
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, "alice", Entry{DumpID: "d1", Summary: "crash a"}))
	assert.Equal(t, 0, idx.Count("bob"))
}
