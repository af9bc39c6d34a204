package pipeline

import (
	"sort"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/parse"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/report"
)

// ManagedFrame is one frame surfaced by the managed-runtime walker (C4),
// already correlated to its stack roots (§4.4) before merge.
type ManagedFrame struct {
	StackPointer string
	Signature    string
	SourceFile   string
	LineNumber   int
	Parameters   []string
	Locals       []string
}

// MergeStackByStackPointer implements §4.8: native frames whose stack
// pointer matches a managed frame are enriched in place; managed frames
// with no native match are inserted as orphans ordered by stack pointer,
// and the result is renumbered contiguously from 0.
func MergeStackByStackPointer(native []report.Frame, managed []ManagedFrame) []report.Frame {
	if len(managed) == 0 {
		return native
	}

	byPointer := make(map[uint64]ManagedFrame, len(managed))
	order := make([]uint64, 0, len(managed))
	for _, m := range managed {
		v, ok := parse.ParsePointer(m.StackPointer)
		if !ok {
			continue
		}
		if _, exists := byPointer[v]; !exists {
			order = append(order, v)
		}
		byPointer[v] = m
	}

	if len(native) == 0 {
		return orphansOnly(byPointer, order)
	}

	matched := make(map[uint64]bool, len(order))
	result := make([]report.Frame, 0, len(native)+len(order))

	seenNativePointer := make(map[uint64]bool, len(native))
	for _, f := range native {
		v, ok := parse.ParsePointer(f.StackPointer)
		if !ok {
			result = append(result, f)
			continue
		}
		// Only the topmost native frame at a shared stack pointer is
		// enriched; later duplicates pass through unmodified.
		if seenNativePointer[v] {
			f.StackPointerValue = v
			result = append(result, f)
			continue
		}
		seenNativePointer[v] = true

		if m, ok := byPointer[v]; ok && !matched[v] {
			matched[v] = true
			f.Function = m.Signature
			f.IsManaged = true
			if m.SourceFile != "" {
				f.SourceFile = m.SourceFile
				f.LineNumber = m.LineNumber
			}
			f.Parameters = m.Parameters
			f.Locals = m.Locals
			f.StackPointerValue = v
		} else {
			f.StackPointerValue = v
		}
		result = append(result, f)
	}

	var orphans []report.Frame
	for _, v := range order {
		if matched[v] {
			continue
		}
		m := byPointer[v]
		orphans = append(orphans, report.Frame{
			StackPointer:      parse.FormatPointer(v),
			StackPointerValue: v,
			Function:          m.Signature,
			SourceFile:        m.SourceFile,
			LineNumber:        m.LineNumber,
			IsManaged:         true,
			Parameters:        m.Parameters,
			Locals:            m.Locals,
		})
	}

	result = interleaveOrphans(result, orphans)
	renumber(result)
	return result
}

// orphansOnly builds a synthesized call stack from managed frames alone
// (§4.8 "If B is empty but M is non-empty"), ordered by descending stack
// pointer (closer to the stack base first, matching native frame-number
// ordering).
func orphansOnly(byPointer map[uint64]ManagedFrame, order []uint64) []report.Frame {
	sorted := append([]uint64(nil), order...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })

	out := make([]report.Frame, 0, len(sorted))
	for i, v := range sorted {
		m := byPointer[v]
		out = append(out, report.Frame{
			FrameNumber:       i,
			StackPointer:      parse.FormatPointer(v),
			StackPointerValue: v,
			Function:          m.Signature,
			SourceFile:        m.SourceFile,
			LineNumber:        m.LineNumber,
			IsManaged:         true,
			Parameters:        m.Parameters,
			Locals:            m.Locals,
		})
	}
	return out
}

// interleaveOrphans inserts each orphan frame at the position its stack
// pointer's ordering dictates: frames are kept in descending
// stack-pointer order (higher addresses, closer to the stack base, come
// first), matching native frame-number order.
func interleaveOrphans(frames, orphans []report.Frame) []report.Frame {
	if len(orphans) == 0 {
		return frames
	}
	all := append(append([]report.Frame(nil), frames...), orphans...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].StackPointerValue > all[j].StackPointerValue
	})
	return all
}

func renumber(frames []report.Frame) {
	for i := range frames {
		frames[i].FrameNumber = i
	}
}

// SelectTopFunction implements §4.7 step 8's top-function rule: the first
// non-placeholder frame's function, or the first frame's function if every
// frame is a placeholder (§8 invariant 9).
func SelectTopFunction(frames []report.Frame) string {
	if len(frames) == 0 {
		return ""
	}
	for _, f := range frames {
		if !report.IsPlaceholderFunction(f.Function) {
			return f.Function
		}
	}
	return frames[0].Function
}
