package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/report"
)

// deepStackThreshold flags a thread as a runaway-recursion candidate once
// its merged call stack exceeds this many frames.
const deepStackThreshold = 200

// busyWaitKeywords names functions that spend CPU without making progress,
// the performance-variant counterpart to synchronization.go's waiterKeywords.
var busyWaitKeywords = []string{"spinwait", "spin_lock", "busyloop", "thread.sleep(0)"}

// DetectPerformanceFindings implements the analyze(performance) variant's
// contribution to analysis.summary.recommendations: flag threads whose
// merged call stack suggests runaway recursion or a CPU-burning busy wait,
// distinct from the generic crash summary every variant shares.
func DetectPerformanceFindings(all []report.ThreadInfo) []string {
	var deepStacks []string
	var busyThreads []string

	for _, t := range all {
		if len(t.CallStack) > deepStackThreshold {
			deepStacks = append(deepStacks, t.ThreadID)
		}
		lower := strings.ToLower(t.TopFunction)
		for _, kw := range busyWaitKeywords {
			if strings.Contains(lower, kw) {
				busyThreads = append(busyThreads, t.ThreadID)
				break
			}
		}
	}

	var findings []string
	if len(deepStacks) > 0 {
		sort.Strings(deepStacks)
		findings = append(findings, fmt.Sprintf(
			"%d thread(s) have call stacks over %d frames deep, suggesting runaway recursion: %s.",
			len(deepStacks), deepStackThreshold, strings.Join(deepStacks, ", ")))
	}
	if len(busyThreads) > 0 {
		sort.Strings(busyThreads)
		findings = append(findings, fmt.Sprintf(
			"%d thread(s) are parked in a busy wait: %s.",
			len(busyThreads), strings.Join(busyThreads, ", ")))
	}
	return findings
}
