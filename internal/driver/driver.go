// Package driver defines the single-writer cooperative debugger-subprocess
// abstraction (initialize/open_dump/close_dump/execute/dispose) and its two
// backend-family implementations.
package driver

import (
	"context"
	"time"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/errkind"
)

// State is the driver's lifecycle state, §4.1.
type State int

const (
	// StateSpawned is the state immediately after the subprocess starts,
	// before initialize() has completed.
	StateSpawned State = iota
	// StateInitialized is reached after a successful initialize() and
	// re-entered after close_dump().
	StateInitialized
	// StateDumpOpen is reached after a successful open_dump().
	StateDumpOpen
	// StateDisposed is terminal: dispose() was called.
	StateDisposed
	// StateCrashed is terminal-like: the subprocess exited unexpectedly.
	StateCrashed
)

// String renders the state name for logging.
func (s State) String() string {
	switch s {
	case StateSpawned:
		return "Spawned"
	case StateInitialized:
		return "Initialized"
	case StateDumpOpen:
		return "DumpOpen"
	case StateDisposed:
		return "Disposed"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// Family identifies the backend implementation family.
type Family string

const (
	// FamilyWinDbg is the Windows debugging-engine family (cdb/windbg-style
	// command verbs: .symfix, !clrstack).
	FamilyWinDbg Family = "windbg"
	// FamilyLLDB is the LLVM-debugger family (bt, thread list).
	FamilyLLDB Family = "lldb"
)

// Driver is the single-writer cooperative command channel to one debugger
// subprocess, per §4.1.
type Driver interface {
	Initialize(ctx context.Context) error
	OpenDump(ctx context.Context, dumpPath string, executablePath string) error
	CloseDump(ctx context.Context) error
	Execute(ctx context.Context, command string) (string, error)
	LoadExtension(ctx context.Context) error
	ConfigureSymbolPath(ctx context.Context, pathSpec string) error
	Dispose(ctx context.Context) error

	// IsInitialized reports whether initialize() has completed.
	IsInitialized() bool
	// IsDumpOpen reports whether a dump is currently open.
	IsDumpOpen() bool
	// CurrentDumpPath returns the path of the currently open dump, or "".
	CurrentDumpPath() string
	// BackendFamily identifies which backend family this driver implements.
	BackendFamily() Family
	// IsExtensionLoaded reports whether the managed-runtime extension has
	// been loaded into this debugger session.
	IsExtensionLoaded() bool
	// RuntimeFamilyDetected returns the detected managed-runtime family
	// ("dotnet", "" if undetected).
	RuntimeFamilyDetected() string

	// State returns the current lifecycle state.
	State() State
}

// Errors returned by driver implementations, per §4.1.
var (
	ErrInitializationFailed = errkind.New(errkind.KindBackendUnavailable, "initialization failed")
	ErrDumpOpenFailed       = errkind.New(errkind.KindInvalidArgument, "dump open failed")
	ErrCommandTimedOut      = errkind.New(errkind.KindTimeout, "command timed out")
	ErrDebuggerGone         = errkind.New(errkind.KindBackendUnavailable, "debugger gone")
	ErrNotInitialized       = errkind.New(errkind.KindPrecondition, "not initialized")
	ErrNoDumpOpen           = errkind.New(errkind.KindPrecondition, "no dump open")
)

// Options configures a driver instance at construction time.
type Options struct {
	// ExecutablePath is the path to the debugger binary.
	ExecutablePath string
	// StartupTimeout bounds how long initialize() waits for the subprocess
	// to reach its command prompt.
	StartupTimeout time.Duration
	// DefaultCommandTimeout bounds Execute calls that are not given their
	// own deadline by the caller.
	DefaultCommandTimeout time.Duration
}
