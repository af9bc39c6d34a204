// Package report defines the canonical analysis-report document and its
// rendering to markdown, HTML, and JSON.
package report

import "time"

// PlaceholderFunctions lists the synthetic frame-function markers the
// managed-runtime walker uses to label frames it could not resolve.
var PlaceholderFunctions = map[string]bool{
	"[Runtime]":       true,
	"[ManagedMethod]": true,
}

// IsPlaceholderFunction reports whether function is one of the fixed
// placeholder markers, including the two parameterized forms
// "[JIT Code @ *]" and "[Native Code @ *]".
func IsPlaceholderFunction(function string) bool {
	if PlaceholderFunctions[function] {
		return true
	}
	if hasPrefixSuffix(function, "[JIT Code @ ", "]") {
		return true
	}
	if hasPrefixSuffix(function, "[Native Code @ ", "]") {
		return true
	}
	return false
}

func hasPrefixSuffix(s, prefix, suffix string) bool {
	if len(s) < len(prefix)+len(suffix) {
		return false
	}
	return s[:len(prefix)] == prefix && s[len(s)-len(suffix):] == suffix
}

// Report is the canonical analysis document produced by the pipeline.
type Report struct {
	Metadata Metadata `json:"metadata"`
	Analysis Analysis `json:"analysis"`
}

// Metadata carries document-level identification.
type Metadata struct {
	DumpID         string    `json:"dumpId"`
	UserID         string    `json:"userId"`
	GeneratedAt    time.Time `json:"generatedAt"`
	Format         string    `json:"format"`
	DebuggerFamily string    `json:"debuggerFamily"`
	ServerVersion  string    `json:"serverVersion"`
}

// Analysis groups every report section below the metadata.
type Analysis struct {
	Summary     Summary      `json:"summary"`
	Exception   *Exception   `json:"exception,omitempty"`
	Environment Environment  `json:"environment"`
	Threads     Threads      `json:"threads"`
	Memory      Memory       `json:"memory"`
	Assemblies  Assemblies   `json:"assemblies"`
	Modules     []Module     `json:"modules"`
	Async       *Async       `json:"async,omitempty"`
	Security    *Security    `json:"security,omitempty"`
	Watches     *Watches     `json:"watches,omitempty"`
	AIAnalysis  *AIAnalysis  `json:"aiAnalysis,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Summary is the human-oriented crash summary and recommendations.
type Summary struct {
	CrashType       string   `json:"crashType"`
	Severity        string   `json:"severity"`
	Description     string   `json:"description"`
	Recommendations []string `json:"recommendations"`
}

// Exception describes the fault that triggered the dump, when known.
type Exception struct {
	Type           string   `json:"type"`
	Address        string   `json:"address"`
	Message        string   `json:"message,omitempty"`
	InnerException []string `json:"innerExceptionChain,omitempty"`
}

// Environment describes the platform and process the dump was captured from.
type Environment struct {
	Platform Platform `json:"platform"`
	Runtime  Runtime  `json:"runtime"`
	Process  Process  `json:"process"`
}

// Platform identifies the OS/architecture pair of the dumped process.
type Platform struct {
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
}

// Runtime carries the managed-runtime version, when detected.
type Runtime struct {
	Version string `json:"version,omitempty"`
}

// Process carries process identification, when available.
type Process struct {
	ID          *int   `json:"id,omitempty"`
	CommandLine string `json:"commandLine,omitempty"`
}

// Threads is the report's thread section.
type Threads struct {
	Summary      ThreadsSummary `json:"summary"`
	OSThreadCount int           `json:"osThreadCount"`
	All          []ThreadInfo   `json:"all"`
}

// ThreadsSummary carries managed-runtime thread-table counts when available.
type ThreadsSummary struct {
	ManagedThreadCount int `json:"managedThreadCount"`
	DeadThreadCount    int `json:"deadThreadCount"`
}

// ThreadInfo is one thread's identity and call stack.
type ThreadInfo struct {
	ThreadID         string  `json:"threadId"`
	OSThreadID       string  `json:"osThreadId"`
	OSThreadIDDecimal int    `json:"osThreadIdDecimal"`
	TopFunction      string  `json:"topFunction"`
	IsFaulting       bool    `json:"isFaulting"`
	IsDead           bool    `json:"isDead"`
	CallStack        []Frame `json:"callStack"`
}

// Frame is one call-stack entry, possibly enriched from managed evidence.
type Frame struct {
	FrameNumber        int               `json:"frameNumber"`
	StackPointer       string            `json:"stackPointer"`
	InstructionPointer string            `json:"instructionPointer"`
	Module             string            `json:"module"`
	Function           string            `json:"function"`
	SourceFile         string            `json:"sourceFile,omitempty"`
	LineNumber         int               `json:"lineNumber,omitempty"`
	IsManaged          bool              `json:"isManaged"`
	Registers          map[string]string `json:"registers,omitempty"`
	Parameters         []string          `json:"parameters,omitempty"`
	Locals             []string          `json:"locals,omitempty"`

	// StackPointerValue is the parsed unsigned form of StackPointer, used
	// internally by the merge algorithm (§4.8); never serialized.
	StackPointerValue uint64 `json:"-"`
}

// Memory is the report's heap/leak section.
type Memory struct {
	LeakAnalysis  LeakAnalysis     `json:"leakAnalysis"`
	HeapTypeStats []HeapTypeStat   `json:"heapTypeStats,omitempty"`
}

// LeakAnalysis summarizes detected leak suspicion and total heap size.
type LeakAnalysis struct {
	Detected        bool  `json:"detected"`
	TotalHeapBytes  *uint64 `json:"totalHeapBytes,omitempty"`
}

// HeapTypeStat is one row of the managed heap's per-type statistics.
type HeapTypeStat struct {
	TypeName   string `json:"typeName"`
	Count      uint64 `json:"count"`
	TotalBytes uint64 `json:"totalBytes"`
}

// Assemblies is the report's loaded-assembly section.
type Assemblies struct {
	Count int          `json:"count"`
	Items []AssemblyInfo `json:"items"`
}

// AssemblyInfo describes one loaded managed assembly.
type AssemblyInfo struct {
	Name            string `json:"name"`
	AssemblyVersion string `json:"assemblyVersion,omitempty"`
	FileVersion     string `json:"fileVersion,omitempty"`
	Path            string `json:"path,omitempty"`
	ModuleID        string `json:"moduleId,omitempty"`
	SourceURL       string `json:"sourceUrl,omitempty"`
	CommitHash      string `json:"commitHash,omitempty"`
}

// DedupKey returns the first present of path / name|moduleId / name, per §4.7 step 6.
func (a AssemblyInfo) DedupKey() string {
	if a.Path != "" {
		return "path:" + a.Path
	}
	if a.ModuleID != "" {
		return "name-module:" + a.Name + "|" + a.ModuleID
	}
	return "name:" + a.Name
}

// Module is one native module entry from the native module list.
type Module struct {
	Name        string  `json:"name"`
	BaseAddress string  `json:"baseAddress"`
	Size        *uint64 `json:"size,omitempty"`
}

// Async carries task-scheduler diagnostics, when known.
type Async struct {
	FaultedTaskCount *int `json:"faultedTaskCount,omitempty"`
	PendingTaskCount *int `json:"pendingTaskCount,omitempty"`
}

// Security carries the security-analysis section (analyze(security) only).
type Security struct {
	OverallRisk string            `json:"overallRisk"`
	Findings    []SecurityFinding `json:"findings"`
}

// SecurityFinding is one security-analysis observation.
type SecurityFinding struct {
	Kind       string `json:"kind"`
	Severity   string `json:"severity"`
	Confidence string `json:"confidence"`
	CWE        string `json:"cwe,omitempty"`
}

// Watches carries watch-evaluation results, present only when requested.
type Watches struct {
	TotalWatches int            `json:"totalWatches"`
	Results      []WatchResult  `json:"results"`
}

// WatchResult is one evaluated watch expression.
type WatchResult struct {
	Expression string `json:"expression"`
	Value      string `json:"value,omitempty"`
	Error      string `json:"error,omitempty"`
}

// AIAnalysis carries the optional AI-assisted root-cause analysis.
type AIAnalysis struct {
	RootCause        string   `json:"rootCause"`
	Confidence       float64  `json:"confidence"`
	Reasoning        string   `json:"reasoning"`
	Iterations       int      `json:"iterations"`
	CommandsExecuted []string `json:"commandsExecuted"`
}

// Diagnostic is a non-fatal, per-step failure recorded instead of aborting
// the pipeline (§4.7, §7 UnsupportedOperation policy).
type Diagnostic struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}
