package pipeline

import (
	"fmt"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/report"
)

// ComputeDescriptionCounts implements §4.7 step 8's three counts: the OS
// thread count, the total frame count across every thread's call stack
// after all merges, and the faulting thread's own call-stack length.
func ComputeDescriptionCounts(all []report.ThreadInfo) (threadCount, totalFrames, faultingFrames int) {
	threadCount = len(all)

	faultingIdx := 0
	foundFaulting := false
	for i, t := range all {
		totalFrames += len(t.CallStack)
		if t.IsFaulting && !foundFaulting {
			faultingIdx = i
			foundFaulting = true
		}
	}
	if len(all) > 0 {
		faultingFrames = len(all[faultingIdx].CallStack)
	}
	return threadCount, totalFrames, faultingFrames
}

// FormatDescription renders the crash description, re-derived fresh on
// every call so a rewrite always reflects the current counts (§8 S2: "the
// rewrite must replace those three numbers").
func FormatDescription(threadCount, totalFrames, faultingFrames int) string {
	return fmt.Sprintf(
		"Process had %d OS threads with %d total stack frames after enrichment; "+
			"the faulting thread's call stack has %d frames.",
		threadCount, totalFrames, faultingFrames,
	)
}

// DeadThreadRecommendation implements §4.7 step 8's recommendation rule:
// when the managed thread table reports more dead threads than the OS
// thread list includes, emit a recommendation naming the excess — never
// attributing managed accounting to OS threads (§8 invariant 8).
func DeadThreadRecommendation(managedDeadCount int, all []report.ThreadInfo) (string, bool) {
	osDeadCount := 0
	for _, t := range all {
		if t.IsDead {
			osDeadCount++
		}
	}
	if managedDeadCount <= osDeadCount {
		return "", false
	}
	excess := managedDeadCount - osDeadCount
	return fmt.Sprintf(
		"CLR reports %d dead managed thread(s) not visible in the OS thread list.",
		excess,
	), true
}

// BuildSummary assembles analysis.summary per §4.7 step 8 and §6.
func BuildSummary(crashType, severity string, all []report.ThreadInfo, managedDeadCount int) report.Summary {
	threadCount, totalFrames, faultingFrames := ComputeDescriptionCounts(all)

	summary := report.Summary{
		CrashType:       crashType,
		Severity:        severity,
		Description:     FormatDescription(threadCount, totalFrames, faultingFrames),
		Recommendations: []string{},
	}
	if rec, ok := DeadThreadRecommendation(managedDeadCount, all); ok {
		summary.Recommendations = append(summary.Recommendations, rec)
	}
	return summary
}
