package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/report"
)

func TestDedupeAssembliesPrefersPathKey(t *testing.T) {
	items := []report.AssemblyInfo{
		{Name: "MyApp", Path: "/app/MyApp.dll"},
		{Name: "MyApp", Path: "/app/MyApp.dll"},
		{Name: "Other", ModuleID: "0x1"},
		{Name: "Other", ModuleID: "0x1"},
		{Name: "NoKeyOnly"},
		{Name: "NoKeyOnly"},
	}
	out := DedupeAssemblies(items)
	assert.Len(t, out, 3)

	seen := make(map[string]bool)
	for _, a := range out {
		key := a.DedupKey()
		assert.False(t, seen[key], "duplicate dedup key %s", key)
		seen[key] = true
	}
}
