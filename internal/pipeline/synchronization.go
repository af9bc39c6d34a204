package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/report"
)

// waiterKeywords identify a stack frame that names a synchronization
// primitive a thread may be blocked on.
var waiterKeywords = []string{
	"monitor.wait", "monitor.enter", "mutex", "semaphore",
	"readerwriterlock", "manualresetevent", "autoresetevent",
}

// DetectSynchronization implements §4.7 step 7: scan every thread's call
// stack for frames naming a synchronization primitive, group threads by
// the primitive they appear to be waiting on, and label a potential
// deadlock when two or more threads share one. Lock ownership is not
// tracked, so cycles of threads waiting on each other's primitives are not
// detected. Returns a human-readable note, or "" if nothing suspicious was
// found.
func DetectSynchronization(all []report.ThreadInfo) (string, error) {
	waiters := make(map[string][]string) // primitive name -> waiting thread ids

	for _, t := range all {
		counted := make(map[string]bool)
		for _, f := range t.CallStack {
			lower := strings.ToLower(f.Function)
			for _, kw := range waiterKeywords {
				if strings.Contains(lower, kw) {
					if !counted[kw] {
						counted[kw] = true
						waiters[kw] = append(waiters[kw], t.OSThreadID)
					}
					break
				}
			}
		}
	}

	var crowded []string
	for primitive, threads := range waiters {
		if len(threads) > 1 {
			crowded = append(crowded, fmt.Sprintf("%s (%d threads)", primitive, len(threads)))
		}
	}
	if len(crowded) == 0 {
		return "", nil
	}
	sort.Strings(crowded)
	return "possible deadlock: multiple threads waiting on " + strings.Join(crowded, ", "), nil
}
