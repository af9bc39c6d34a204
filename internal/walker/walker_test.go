package walker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/parse"
)

func TestBucketRootsByFrame(t *testing.T) {
	frames := []parse.WalkerFrame{
		{StackPointer: "0x1000"},
		{StackPointer: "0x2000"},
		{StackPointer: "0x3000"},
	}
	roots := []parse.WalkerStackRoot{
		{StackPointer: "0x1500", Description: "belongs to frame 0"},
		{StackPointer: "0x2500", Description: "belongs to frame 1"},
		{StackPointer: "0x3000", Description: "exact match, frame 2"},
		{StackPointer: "0x0500", Description: "below lowest frame, dropped"},
	}

	buckets := BucketRootsByFrame(frames, roots)
	assert.Len(t, buckets[0], 1)
	assert.Len(t, buckets[1], 1)
	assert.Len(t, buckets[2], 1)
	assert.Equal(t, "belongs to frame 0", buckets[0][0].Description)
	assert.Equal(t, "exact match, frame 2", buckets[2][0].Description)
	assert.NotContains(t, buckets, -1)
}

func TestResolveILOffset(t *testing.T) {
	entries := []NativeToILEntry{
		{Start: 0x1000, End: 0x1010, ILOffset: 0},
		{Start: 0x1010, End: 0x1020, ILOffset: 4},
	}

	offset, ok := ResolveILOffset(entries, 0x1015)
	assert.True(t, ok)
	assert.Equal(t, 4, offset)

	_, ok = ResolveILOffset(entries, 0x2000)
	assert.False(t, ok)
}

func TestContainsOKAndSplitLines(t *testing.T) {
	assert.True(t, containsOK("some header\nOK\n"))
	assert.False(t, containsOK("ERROR: dump not found\n"))
}
