package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/report"
)

// TestMergeStackByStackPointer_S5 is the literal scenario from §8: native
// frames at 0x3000 (N0) and 0x1000 (N1), managed frames at 0x3000 (M0,
// matches N0) and 0x2000 (M1, orphan). After merge: frame 0 is
// M0-enriched at 0x3000, frame 1 is orphan M1 at 0x2000, frame 2 is N1 at
// 0x1000.
func TestMergeStackByStackPointer_S5(t *testing.T) {
	native := []report.Frame{
		{FrameNumber: 0, StackPointer: "0x3000", Function: "native_n0"},
		{FrameNumber: 1, StackPointer: "0x1000", Function: "native_n1"},
	}
	managed := []ManagedFrame{
		{StackPointer: "0x3000", Signature: "MyApp.Widget.Render()"},
		{StackPointer: "0x2000", Signature: "MyApp.Widget.Orphan()"},
	}

	result := MergeStackByStackPointer(native, managed)

	assert.Len(t, result, 3)
	assert.Equal(t, 0, result[0].FrameNumber)
	assert.Equal(t, "0x3000", result[0].StackPointer)
	assert.Equal(t, "MyApp.Widget.Render()", result[0].Function)
	assert.True(t, result[0].IsManaged)

	assert.Equal(t, 1, result[1].FrameNumber)
	assert.Equal(t, "0x2000", result[1].StackPointer)
	assert.Equal(t, "MyApp.Widget.Orphan()", result[1].Function)
	assert.True(t, result[1].IsManaged)

	assert.Equal(t, 2, result[2].FrameNumber)
	assert.Equal(t, "0x1000", result[2].StackPointer)
	assert.Equal(t, "native_n1", result[2].Function)
	assert.False(t, result[2].IsManaged)
}

func TestMergeStackByStackPointer_EmptyManagedLeavesNativeUnchanged(t *testing.T) {
	native := []report.Frame{{FrameNumber: 0, StackPointer: "0x1000", Function: "f"}}
	result := MergeStackByStackPointer(native, nil)
	assert.Equal(t, native, result)
}

func TestMergeStackByStackPointer_EmptyNativeUsesManagedAsCallStack(t *testing.T) {
	managed := []ManagedFrame{
		{StackPointer: "0x2000", Signature: "Outer()"},
		{StackPointer: "0x1000", Signature: "Inner()"},
	}
	result := MergeStackByStackPointer(nil, managed)
	assert.Len(t, result, 2)
	assert.Equal(t, "Outer()", result[0].Function)
	assert.Equal(t, "Inner()", result[1].Function)
	assert.Equal(t, 0, result[0].FrameNumber)
	assert.Equal(t, 1, result[1].FrameNumber)
}

func TestMergeStackByStackPointer_OnlyTopmostDuplicateSPEnriched(t *testing.T) {
	native := []report.Frame{
		{FrameNumber: 0, StackPointer: "0x1000", Function: "dup_a"},
		{FrameNumber: 1, StackPointer: "0x1000", Function: "dup_b"},
	}
	managed := []ManagedFrame{{StackPointer: "0x1000", Signature: "Managed()"}}

	result := MergeStackByStackPointer(native, managed)
	assert.Equal(t, "Managed()", result[0].Function)
	assert.Equal(t, "dup_b", result[1].Function)
}

// TestSelectTopFunction_S6 is the literal scenario from §8: placeholder
// frames are skipped in favor of the first real function.
func TestSelectTopFunction_S6(t *testing.T) {
	frames := []report.Frame{
		{Function: "[JIT Code @ 0xabc]"},
		{Function: "[Runtime]"},
		{Function: "System.Threading.Monitor.Wait(...)"},
		{Function: "MyApp.Program.Main()"},
	}
	assert.Equal(t, "System.Threading.Monitor.Wait(...)", SelectTopFunction(frames))
}

func TestSelectTopFunction_AllPlaceholdersFallsBackToFirst(t *testing.T) {
	frames := []report.Frame{
		{Function: "[Runtime]"},
		{Function: "[ManagedMethod]"},
	}
	assert.Equal(t, "[Runtime]", SelectTopFunction(frames))
}
