// Package pipeline implements the ordered crash/performance/security
// analysis protocol (§4.7): capture context, merge native and managed
// views of each thread's stack (§4.8), enrich with debug info and
// assembly metadata, run the synchronization sub-pass, and compute the
// summary. Grounded on pkg/orchestra/orchestra.go's ExecuteWorkflow: the
// same "ordered phase sequence, each phase tolerant of partial failure,
// diagnostics accumulated rather than aborting" discipline, generalized
// from Analyze/Plan/Execute/Validate to Collecting/MergingNative/
// MergingManaged/Enriching/Summarizing/Cached.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/debuginfo"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/driver"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/errkind"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/parse"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/report"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/walker"
)

// State is the pipeline's run-to-run state machine (§4.7).
type State int

const (
	StateCollecting State = iota
	StateMergingNative
	StateMergingManaged
	StateEnriching
	StateSummarizing
	StateCached
)

func (s State) String() string {
	switch s {
	case StateCollecting:
		return "Collecting"
	case StateMergingNative:
		return "MergingNative"
	case StateMergingManaged:
		return "MergingManaged"
	case StateEnriching:
		return "Enriching"
	case StateSummarizing:
		return "Summarizing"
	case StateCached:
		return "Cached"
	default:
		return "Unknown"
	}
}

// Variant selects which analyze() flavor is being run.
type Variant string

const (
	VariantCrash       Variant = "crash"
	VariantDotnetCrash Variant = "dotnet_crash" // alias of crash, §9
	VariantPerformance Variant = "performance"
	VariantSecurity    Variant = "security"
	VariantAI          Variant = "ai"
)

// Inputs bundles everything the pipeline needs to run once over an open
// dump. Every field is optional except Drv and DebuggerFamily; absence of
// the managed extension, the walker, or the resolver degrades individual
// steps to diagnostics rather than aborting (§4.7).
type Inputs struct {
	Drv            driver.Driver
	DebuggerFamily string
	Walker         *walker.Walker // nil if not open
	Resolver       *debuginfo.Resolver
	ServerVersion  string
	DumpID         string
	UserID         string
}

// Pipeline runs the ordered protocol once and produces a Report.
type Pipeline struct {
	state State
}

// New constructs a Pipeline positioned at StateCollecting.
func New() *Pipeline {
	return &Pipeline{state: StateCollecting}
}

// State returns the pipeline's current state.
func (p *Pipeline) State() State { return p.state }

// Run executes the nine-step protocol of §4.7 for the given variant,
// tolerating per-step failures as diagnostics rather than aborting.
func (p *Pipeline) Run(ctx context.Context, in Inputs, variant Variant) (*report.Report, error) {
	p.state = StateCollecting
	var diagnostics []report.Diagnostic
	note := func(step, msg string) {
		diagnostics = append(diagnostics, report.Diagnostic{Step: step, Message: msg})
	}

	doc := &report.Report{
		Metadata: report.Metadata{
			DumpID:         in.DumpID,
			UserID:         in.UserID,
			GeneratedAt:    time.Now().UTC(),
			Format:         "json",
			DebuggerFamily: in.DebuggerFamily,
			ServerVersion:  in.ServerVersion,
		},
	}

	// Step 1: basic context, modules, threads, current exception context.
	entries, err := p.captureThreadList(ctx, in.Drv)
	if err != nil {
		note("capture_threads", err.Error())
	}
	modules, err := p.captureModules(ctx, in.Drv)
	if err != nil {
		note("capture_modules", err.Error())
	} else {
		doc.Analysis.Modules = modules
	}
	exc, hasExc, err := p.captureException(ctx, in.Drv)
	if err != nil {
		note("capture_exception", err.Error())
	} else if hasExc {
		doc.Analysis.Exception = &report.Exception{
			Type:           exc.Type,
			Address:        exc.Address,
			Message:        exc.Message,
			InnerException: exc.InnerException,
		}
	}

	all := make([]report.ThreadInfo, 0, len(entries))
	for _, e := range entries {
		all = append(all, report.ThreadInfo{
			ThreadID:          e.ManagedThreadID,
			OSThreadID:        parse.FormatPointer(uint64(e.OSThreadIDDecimal)),
			OSThreadIDDecimal: e.OSThreadIDDecimal,
			IsDead:            e.State == "Dead",
			IsFaulting:        hasExc && exc.HasFaultingThread && e.OSThreadIDDecimal == exc.FaultingOSThreadID,
		})
	}

	// Step 2: native backtraces per thread.
	p.state = StateMergingNative
	for i := range all {
		text, err := p.executeBacktrace(ctx, in.Drv, all[i].OSThreadIDDecimal)
		if err != nil {
			note(fmt.Sprintf("native_backtrace:%d", all[i].OSThreadIDDecimal), err.Error())
			continue
		}
		all[i].CallStack = parse.ParseNativeBacktrace(text, in.DebuggerFamily)
	}

	// Step 3: managed extension evidence (thread table, heap stats) —
	// soft no-op when the extension is not loaded.
	managedDeadCount := 0
	if in.Drv != nil && in.Drv.IsExtensionLoaded() {
		deadCount, err := p.captureManagedThreadTable(ctx, in.Drv)
		if err != nil {
			note("managed_thread_table", err.Error())
		} else {
			managedDeadCount = deadCount
		}
		if heap, err := p.captureHeapStatistics(ctx, in.Drv); err != nil {
			note("heap_statistics", err.Error())
		} else {
			doc.Analysis.Memory.LeakAnalysis.TotalHeapBytes = heap.CommittedBytes
			doc.Analysis.Memory.LeakAnalysis.Detected = heap.CommittedBytes != nil
			for _, t := range heap.PerType {
				doc.Analysis.Memory.HeapTypeStats = append(doc.Analysis.Memory.HeapTypeStats, report.HeapTypeStat{
					TypeName: t.TypeName, Count: t.Count, TotalBytes: t.TotalBytes,
				})
			}
		}
	}

	// Step 4 & 5: merge walker frames by stack pointer, resolving source
	// locations for each managed frame from the debug-info resolver along
	// the way (the walker exposes (module path, method token, IL offset),
	// not a ready-made signature or source location).
	p.state = StateMergingManaged
	if in.Walker != nil {
		for i := range all {
			merged, err := p.mergeWalkerThread(ctx, in.Walker, in.Resolver, &all[i])
			if err != nil {
				note(fmt.Sprintf("merge_walker:%d", all[i].OSThreadIDDecimal), err.Error())
				continue
			}
			if merged != nil {
				all[i].CallStack = merged
			}
		}
	}

	p.state = StateEnriching
	// Step 6: capture, enrich, and dedupe loaded assemblies.
	if assemblies, err := p.captureAssemblies(ctx, in.Drv); err != nil {
		note("capture_assemblies", err.Error())
	} else {
		doc.Analysis.Assemblies.Items = assemblies
	}
	doc.Analysis.Assemblies.Items = DedupeAssemblies(doc.Analysis.Assemblies.Items)
	doc.Analysis.Assemblies.Count = len(doc.Analysis.Assemblies.Items)

	// Step 7: synchronization sub-pass (waiter-chain / deadlock detection).
	if sync, err := DetectSynchronization(all); err != nil {
		note("synchronization", err.Error())
	} else if sync != "" {
		note("synchronization", sync)
	}

	// Top function per thread, per §4.7 step 8's selection rule.
	for i := range all {
		all[i].TopFunction = SelectTopFunction(all[i].CallStack)
	}

	// Step 8: compute summary.
	p.state = StateSummarizing
	doc.Analysis.Threads.All = all
	doc.Analysis.Threads.OSThreadCount = len(all)
	doc.Analysis.Threads.Summary.DeadThreadCount = managedDeadCount
	doc.Analysis.Threads.Summary.ManagedThreadCount = len(all)

	crashType := "unknown"
	severity := "error"
	switch {
	case variant == VariantPerformance:
		crashType = "performance"
		severity = "warning"
	case doc.Analysis.Exception != nil && doc.Analysis.Exception.Type != "":
		crashType = doc.Analysis.Exception.Type
	}
	doc.Analysis.Summary = BuildSummary(crashType, severity, all, managedDeadCount)

	// Step 9 (security variant): scan every thread's call stack for
	// known-risky API usage and record findings distinct from the
	// synchronization sub-pass above.
	if variant == VariantSecurity {
		doc.Analysis.Security = DetectSecurityFindings(all)
	}

	// Step 9 (performance variant): flag runaway-recursion and busy-wait
	// threads, appended after the generic summary recommendations.
	if variant == VariantPerformance {
		doc.Analysis.Summary.Recommendations = append(
			doc.Analysis.Summary.Recommendations, DetectPerformanceFindings(all)...)
	}

	doc.Analysis.Diagnostics = diagnostics

	p.state = StateCached
	return doc, nil
}

// captureException fetches and parses the dump's current exception
// context (§4.7 step 1), returning ok=false when the dump records none.
func (p *Pipeline) captureException(ctx context.Context, d driver.Driver) (parse.ExceptionInfo, bool, error) {
	if d == nil {
		return parse.ExceptionInfo{}, false, errkind.New(errkind.KindPrecondition, "no driver attached")
	}
	out, err := d.Execute(ctx, "exception info")
	if err != nil {
		return parse.ExceptionInfo{}, false, err
	}
	info, ok := parse.ParseExceptionInfo(out)
	return info, ok, nil
}

// mergeWalkerThread fetches the walker's view of an OS thread and merges
// it into t's native call stack (§4.8), resolving each managed frame's
// source location via resolver when available. Returns nil, nil if the
// walker has no frames for this thread.
func (p *Pipeline) mergeWalkerThread(ctx context.Context, w *walker.Walker, resolver *debuginfo.Resolver, t *report.ThreadInfo) ([]report.Frame, error) {
	osID := t.OSThreadIDDecimal
	frames, err := w.EnumerateFrames(ctx, osID)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, nil
	}

	roots, err := w.EnumerateStackRoots(ctx, osID)
	if err != nil {
		roots = nil // non-fatal: proceed without local-variable enrichment
	}
	buckets := walker.BucketRootsByFrame(frames, roots)

	managed := make([]ManagedFrame, 0, len(frames))
	for i, f := range frames {
		mf := ManagedFrame{
			StackPointer: f.StackPointer,
			Signature:    f.ModulePath + "!" + f.MethodToken,
		}
		if resolver != nil {
			if loc, ok := resolver.Resolve(f.ModulePath, f.MethodToken, f.ILOffset); ok {
				mf.SourceFile = loc.File
				mf.LineNumber = loc.StartLine
			}
		}
		for _, r := range buckets[i] {
			mf.Locals = append(mf.Locals, r.Description)
		}
		managed = append(managed, mf)
	}
	return MergeStackByStackPointer(t.CallStack, managed), nil
}

func (p *Pipeline) executeBacktrace(ctx context.Context, d driver.Driver, osThreadID int) (string, error) {
	if d == nil {
		return "", errkind.New(errkind.KindPrecondition, "no driver attached")
	}
	return d.Execute(ctx, fmt.Sprintf("backtrace %d", osThreadID))
}

func (p *Pipeline) captureThreadList(ctx context.Context, d driver.Driver) ([]parse.ThreadListEntry, error) {
	if d == nil {
		return nil, errkind.New(errkind.KindPrecondition, "no driver attached")
	}
	out, err := d.Execute(ctx, "thread list")
	if err != nil {
		return nil, err
	}
	return parse.ParseThreadList(out), nil
}

func (p *Pipeline) captureModules(ctx context.Context, d driver.Driver) ([]report.Module, error) {
	if d == nil {
		return nil, errkind.New(errkind.KindPrecondition, "no driver attached")
	}
	out, err := d.Execute(ctx, "module list")
	if err != nil {
		return nil, err
	}
	entries := parse.ParseModuleList(out)
	mods := make([]report.Module, 0, len(entries))
	for _, e := range entries {
		mods = append(mods, report.Module{Name: e.Name, BaseAddress: e.BaseAddress})
	}
	return mods, nil
}

func (p *Pipeline) captureAssemblies(ctx context.Context, d driver.Driver) ([]report.AssemblyInfo, error) {
	if d == nil {
		return nil, errkind.New(errkind.KindPrecondition, "no driver attached")
	}
	out, err := d.Execute(ctx, "assembly list")
	if err != nil {
		return nil, err
	}
	entries := parse.ParseAssemblyList(out)
	items := make([]report.AssemblyInfo, 0, len(entries))
	for _, e := range entries {
		items = append(items, report.AssemblyInfo{
			Name:            e.Name,
			AssemblyVersion: e.AssemblyVersion,
			Path:            e.Path,
			ModuleID:        e.ModuleID,
		})
	}
	return items, nil
}

func (p *Pipeline) captureManagedThreadTable(ctx context.Context, d driver.Driver) (int, error) {
	out, err := d.Execute(ctx, "managed thread table")
	if err != nil {
		return 0, err
	}
	entries := parse.ParseManagedThreadTable(out)
	dead := 0
	for _, e := range entries {
		if e.IsDead {
			dead++
		}
	}
	return dead, nil
}

func (p *Pipeline) captureHeapStatistics(ctx context.Context, d driver.Driver) (parse.HeapStats, error) {
	out, err := d.Execute(ctx, "heap statistics")
	if err != nil {
		return parse.HeapStats{}, err
	}
	return parse.ParseHeapStatistics(out), nil
}
