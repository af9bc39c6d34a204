package pipeline

import "github.com/tonyredondo/debugger-mcp-server-sub012/internal/report"

// DedupeAssemblies implements §4.7 step 6: assemblies are deduplicated by
// the most specific available key (path; else name|module id; else name),
// keeping the first occurrence (§8 invariant 7: no two entries share a
// dedup key).
func DedupeAssemblies(items []report.AssemblyInfo) []report.AssemblyInfo {
	seen := make(map[string]bool, len(items))
	out := make([]report.AssemblyInfo, 0, len(items))
	for _, a := range items {
		key := a.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}
