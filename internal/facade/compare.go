package facade

import (
	"context"
	"fmt"
	"sort"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/errkind"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/report"
)

// CompareMode selects what Compare diffs between two already-analyzed
// dumps, per §4.10's "compare (dumps | heaps | threads | modules)".
type CompareMode string

const (
	CompareDumps   CompareMode = "dumps"
	CompareHeaps   CompareMode = "heaps"
	CompareThreads CompareMode = "threads"
	CompareModules CompareMode = "modules"
)

// Compare runs analyze on both sessions' currently open dumps and diffs the
// two reports along mode. Both sessions must belong to owner; the caller is
// free to pass two sessions open on different dumps, or the same session
// re-analyzed after a mutation (different epoch, same dump id).
func (f *Facade) Compare(ctx context.Context, owner, baseSessionID, otherSessionID string, mode CompareMode, opts AnalyzeOptions) (*report.Comparison, error) {
	base, err := f.Analyze(ctx, owner, baseSessionID, opts)
	if err != nil {
		return nil, errkind.Wrap(errkind.KindInternal, "analyze base dump for compare", err)
	}
	other, err := f.Analyze(ctx, owner, otherSessionID, opts)
	if err != nil {
		return nil, errkind.Wrap(errkind.KindInternal, "analyze other dump for compare", err)
	}

	result := &report.Comparison{
		Mode:        string(mode),
		BaseDumpID:  base.Metadata.DumpID,
		OtherDumpID: other.Metadata.DumpID,
	}

	switch mode {
	case CompareDumps:
		compareDumps(base, other, result)
	case CompareHeaps:
		compareHeaps(base, other, result)
	case CompareThreads:
		compareThreads(base, other, result)
	case CompareModules:
		compareModules(base, other, result)
	default:
		return nil, errkind.Invalidf("unsupported compare mode %q", mode)
	}
	return result, nil
}

func compareDumps(base, other *report.Report, result *report.Comparison) {
	if base.Analysis.Summary.CrashType != other.Analysis.Summary.CrashType {
		result.Changed = append(result.Changed, fmt.Sprintf(
			"crashType: %q -> %q", base.Analysis.Summary.CrashType, other.Analysis.Summary.CrashType))
	}
	if base.Analysis.Summary.Severity != other.Analysis.Summary.Severity {
		result.Changed = append(result.Changed, fmt.Sprintf(
			"severity: %q -> %q", base.Analysis.Summary.Severity, other.Analysis.Summary.Severity))
	}
	if base.Analysis.Threads.OSThreadCount != other.Analysis.Threads.OSThreadCount {
		result.Changed = append(result.Changed, fmt.Sprintf(
			"osThreadCount: %d -> %d", base.Analysis.Threads.OSThreadCount, other.Analysis.Threads.OSThreadCount))
	}
	result.Summary = fmt.Sprintf("%d field(s) differ between %s and %s",
		len(result.Changed), result.BaseDumpID, result.OtherDumpID)
}

func compareHeaps(base, other *report.Report, result *report.Comparison) {
	baseByType := make(map[string]report.HeapTypeStat, len(base.Analysis.Memory.HeapTypeStats))
	for _, s := range base.Analysis.Memory.HeapTypeStats {
		baseByType[s.TypeName] = s
	}
	otherByType := make(map[string]report.HeapTypeStat, len(other.Analysis.Memory.HeapTypeStats))
	for _, s := range other.Analysis.Memory.HeapTypeStats {
		otherByType[s.TypeName] = s
	}

	for name, o := range otherByType {
		b, ok := baseByType[name]
		if !ok {
			result.Added = append(result.Added, name)
			continue
		}
		if b.Count != o.Count || b.TotalBytes != o.TotalBytes {
			result.Changed = append(result.Changed, fmt.Sprintf(
				"%s: count %d->%d, bytes %d->%d", name, b.Count, o.Count, b.TotalBytes, o.TotalBytes))
		}
	}
	for name := range baseByType {
		if _, ok := otherByType[name]; !ok {
			result.Removed = append(result.Removed, name)
		}
	}
	sort.Strings(result.Added)
	sort.Strings(result.Removed)
	sort.Strings(result.Changed)
	result.Summary = fmt.Sprintf("%d type(s) added, %d removed, %d changed",
		len(result.Added), len(result.Removed), len(result.Changed))
}

func compareThreads(base, other *report.Report, result *report.Comparison) {
	baseByID := make(map[string]report.ThreadInfo, len(base.Analysis.Threads.All))
	for _, t := range base.Analysis.Threads.All {
		baseByID[t.ThreadID] = t
	}
	otherByID := make(map[string]report.ThreadInfo, len(other.Analysis.Threads.All))
	for _, t := range other.Analysis.Threads.All {
		otherByID[t.ThreadID] = t
	}

	for id, o := range otherByID {
		b, ok := baseByID[id]
		if !ok {
			result.Added = append(result.Added, id)
			continue
		}
		if b.TopFunction != o.TopFunction || b.IsDead != o.IsDead {
			result.Changed = append(result.Changed, fmt.Sprintf(
				"thread %s: topFunction %q->%q, dead %v->%v", id, b.TopFunction, o.TopFunction, b.IsDead, o.IsDead))
		}
	}
	for id := range baseByID {
		if _, ok := otherByID[id]; !ok {
			result.Removed = append(result.Removed, id)
		}
	}
	sort.Strings(result.Added)
	sort.Strings(result.Removed)
	sort.Strings(result.Changed)
	result.Summary = fmt.Sprintf("%d thread(s) added, %d removed, %d changed",
		len(result.Added), len(result.Removed), len(result.Changed))
}

func compareModules(base, other *report.Report, result *report.Comparison) {
	baseNames := make(map[string]bool, len(base.Analysis.Modules))
	for _, m := range base.Analysis.Modules {
		baseNames[m.Name] = true
	}
	otherNames := make(map[string]bool, len(other.Analysis.Modules))
	for _, m := range other.Analysis.Modules {
		otherNames[m.Name] = true
	}

	for name := range otherNames {
		if !baseNames[name] {
			result.Added = append(result.Added, name)
		}
	}
	for name := range baseNames {
		if !otherNames[name] {
			result.Removed = append(result.Removed, name)
		}
	}
	sort.Strings(result.Added)
	sort.Strings(result.Removed)
	result.Summary = fmt.Sprintf("%d module(s) added, %d removed",
		len(result.Added), len(result.Removed))
}
