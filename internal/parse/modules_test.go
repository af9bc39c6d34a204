package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModuleList(t *testing.T) {
	text := "0x00007ffa00000000 libcoreclr.so  (6.0.1.0)\n0x00007ffa10000000 libc.so\n"
	entries := ParseModuleList(text)
	require.Len(t, entries, 2)
	assert.Equal(t, "libcoreclr.so", entries[0].Name)
	assert.Equal(t, "6.0.1.0", entries[0].Version)
	assert.Equal(t, "0x7ffa00000000", entries[0].BaseAddress)
	assert.Empty(t, entries[1].Version)
}
