package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/report"
)

func threadsWithFrameCounts(counts []int, faultingIdx int) []report.ThreadInfo {
	all := make([]report.ThreadInfo, len(counts))
	for i, n := range counts {
		frames := make([]report.Frame, n)
		all[i] = report.ThreadInfo{CallStack: frames, IsFaulting: i == faultingIdx}
	}
	return all
}

// TestComputeDescriptionCounts_S2 is the literal scenario from §8: 47 OS
// threads, a post-merge total of 1639 frames, and a faulting thread with
// 60 frames.
func TestComputeDescriptionCounts_S2(t *testing.T) {
	counts := make([]int, 47)
	counts[0] = 60
	remaining := 1639 - 60
	each := remaining / 46
	leftover := remaining - each*46
	for i := 1; i < 47; i++ {
		counts[i] = each
	}
	counts[1] += leftover

	all := threadsWithFrameCounts(counts, 0)
	threadCount, totalFrames, faultingFrames := ComputeDescriptionCounts(all)

	assert.Equal(t, 47, threadCount)
	assert.Equal(t, 1639, totalFrames)
	assert.Equal(t, 60, faultingFrames)

	desc := FormatDescription(threadCount, totalFrames, faultingFrames)
	assert.Contains(t, desc, "47")
	assert.Contains(t, desc, "1639")
	assert.Contains(t, desc, "60")
}

func TestFormatDescription_RewriteReplacesStaleCounts(t *testing.T) {
	stale := FormatDescription(47, 1280, 49)
	fresh := FormatDescription(47, 1639, 60)
	assert.NotContains(t, fresh, "1280")
	assert.NotContains(t, fresh, "49")
	assert.True(t, strings.Contains(stale, "1280"))
}

// TestDeadThreadRecommendation_S3 is the literal scenario from §8: the
// managed thread table reports 9 dead, the OS thread list shows 0 dead.
func TestDeadThreadRecommendation_S3(t *testing.T) {
	all := threadsWithFrameCounts([]int{1, 1, 1}, 0) // none marked dead
	rec, ok := DeadThreadRecommendation(9, all)
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(rec, "CLR reports 9 dead managed thread(s)"))
	assert.Contains(t, rec, "not visible in the OS thread list")
}

func TestDeadThreadRecommendation_NeverAttributesToOSThreads(t *testing.T) {
	all := []report.ThreadInfo{{IsDead: true}, {IsDead: true}, {IsDead: true}}
	_, ok := DeadThreadRecommendation(3, all)
	assert.False(t, ok, "managed dead count equal to OS dead count should not recommend")
}

func TestDeadThreadRecommendation_ExcessOnly(t *testing.T) {
	all := []report.ThreadInfo{{IsDead: true}, {IsDead: false}}
	rec, ok := DeadThreadRecommendation(5, all)
	assert.True(t, ok)
	assert.Contains(t, rec, "CLR reports 4 dead managed thread(s)")
}
