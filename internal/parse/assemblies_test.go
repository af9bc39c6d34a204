package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAssemblyList(t *testing.T) {
	text := `0x00007ffa00001000 MyApp.Core 1.2.3.4 /app/MyApp.Core.dll
0x00007ffa00002000 MyApp.Plugins 2.0.0.0 /app/plugins/MyApp.Plugins.dll
garbage line with no fields
`
	entries := ParseAssemblyList(text)
	assert.Len(t, entries, 2)
	assert.Equal(t, "MyApp.Core", entries[0].Name)
	assert.Equal(t, "1.2.3.4", entries[0].AssemblyVersion)
	assert.Equal(t, "/app/MyApp.Core.dll", entries[0].Path)
	assert.Equal(t, "MyApp.Plugins", entries[1].Name)
}
