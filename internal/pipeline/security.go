package pipeline

import (
	"sort"
	"strings"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/report"
)

// securityKeyword names a known-risky API surfacing in a call stack, the
// same "scan every frame's function name for a keyword" discipline
// DetectSynchronization uses for waiter primitives, applied to CWE classes
// instead of synchronization primitives.
type securityKeyword struct {
	substr   string
	kind     string
	cwe      string
	severity string
}

var securityKeywords = []securityKeyword{
	{"strcpy", "unsafe_string_copy", "CWE-120", "high"},
	{"strcat", "unsafe_string_copy", "CWE-120", "high"},
	{"gets(", "unsafe_input_function", "CWE-242", "high"},
	{"sprintf", "unsafe_formatted_write", "CWE-134", "medium"},
	{"system(", "command_execution", "CWE-78", "high"},
	{"shellexecute", "command_execution", "CWE-78", "high"},
	{"loadlibrary", "dynamic_code_loading", "CWE-829", "medium"},
	{"virtualalloc", "executable_memory_allocation", "CWE-94", "medium"},
}

var severityRank = map[string]int{"low": 1, "medium": 2, "high": 3}

// DetectSecurityFindings implements the analyze(security) variant's
// contribution to analysis.security: scan every thread's final call stack
// for frames naming a known-risky API and report one finding per distinct
// (kind, CWE) pair observed, with overall risk set to the highest
// individual severity found.
func DetectSecurityFindings(all []report.ThreadInfo) *report.Security {
	seen := make(map[string]report.SecurityFinding)
	for _, t := range all {
		for _, f := range t.CallStack {
			lower := strings.ToLower(f.Function)
			for _, kw := range securityKeywords {
				if !strings.Contains(lower, kw.substr) {
					continue
				}
				key := kw.kind + "|" + kw.cwe
				if _, exists := seen[key]; exists {
					continue
				}
				seen[key] = report.SecurityFinding{
					Kind:       kw.kind,
					Severity:   kw.severity,
					Confidence: "medium",
					CWE:        kw.cwe,
				}
			}
		}
	}

	findings := make([]report.SecurityFinding, 0, len(seen))
	for _, v := range seen {
		findings = append(findings, v)
	}
	sort.Slice(findings, func(i, j int) bool { return findings[i].Kind < findings[j].Kind })

	overall := "none"
	for _, fnd := range findings {
		if severityRank[fnd.Severity] > severityRank[overall] {
			overall = fnd.Severity
		}
	}
	return &report.Security{OverallRisk: overall, Findings: findings}
}
