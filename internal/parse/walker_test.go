package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWalkerThreads(t *testing.T) {
	out := ParseWalkerThreads("THREAD 4821 managed=0x2\nnoise\n")
	require.Len(t, out, 1)
	assert.Equal(t, 4821, out[0].OSThreadIDDecimal)
	assert.Equal(t, "0x2", out[0].ManagedThreadID)
}

func TestParseWalkerFrames(t *testing.T) {
	out := ParseWalkerFrames("FRAME 0x1000 token=0x06000012 module=/app/MyApp.dll iloffset=17\n")
	require.Len(t, out, 1)
	assert.Equal(t, "0x1000", out[0].StackPointer)
	assert.Equal(t, "0x06000012", out[0].MethodToken)
	assert.Equal(t, "/app/MyApp.dll", out[0].ModulePath)
	assert.Equal(t, 17, out[0].ILOffset)
}

func TestParseWalkerStackRoots(t *testing.T) {
	out := ParseWalkerStackRoots("ROOT 0x1000 local 'widget' (MyApp.Widget)\n")
	require.Len(t, out, 1)
	assert.Equal(t, "0x1000", out[0].StackPointer)
	assert.Contains(t, out[0].Description, "widget")
}

func TestParseWalkerModules(t *testing.T) {
	out := ParseWalkerModules("MODULE /app/MyApp.dll token=0x02000001\n")
	require.Len(t, out, 1)
	assert.Equal(t, "/app/MyApp.dll", out[0].Path)
	assert.Equal(t, "0x02000001", out[0].Token)
}
