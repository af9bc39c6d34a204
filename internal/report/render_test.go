package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *Report {
	return &Report{
		Metadata: Metadata{DumpID: "d1", GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), DebuggerFamily: "lldb"},
		Analysis: Analysis{
			Summary: Summary{CrashType: "NullReferenceException", Severity: "high", Description: "desc", Recommendations: []string{"check foo"}},
			Threads: Threads{OSThreadCount: 1, All: []ThreadInfo{
				{ThreadID: "1", OSThreadID: "0x1", TopFunction: "Main", IsFaulting: true, CallStack: []Frame{{FrameNumber: 0, Function: "Main"}}},
			}},
			Modules: []Module{{Name: "libc.so", BaseAddress: "0x1000"}},
		},
	}
}

func TestRenderJSONRoundTrips(t *testing.T) {
	doc := sampleReport()
	s, err := RenderJSON(doc)
	require.NoError(t, err)
	assert.Contains(t, s, "\"dumpId\": \"d1\"")
}

func TestRenderMarkdownContainsSections(t *testing.T) {
	s, err := RenderMarkdown(sampleReport())
	require.NoError(t, err)
	assert.Contains(t, s, "NullReferenceException")
	assert.Contains(t, s, "FAULTING")
	assert.Contains(t, s, "check foo")
}

func TestRenderHTMLEscapesContent(t *testing.T) {
	doc := sampleReport()
	doc.Analysis.Summary.Description = "<script>bad()</script>"
	s, err := RenderHTML(doc)
	require.NoError(t, err)
	assert.NotContains(t, s, "<script>bad()</script>")
	assert.Contains(t, s, "&lt;script&gt;")
}
