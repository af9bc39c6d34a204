package driver

import (
	"runtime"
	"sync"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/errkind"
)

// Factory constructs a Driver instance of a registered Family.
type Factory func(Options) Driver

var (
	registryMu sync.RWMutex
	registry   = map[Family]Factory{}
)

// Register makes a backend family's Factory available to Detect. Backend
// packages (windbgdriver, lldbdriver) call this from an init() func, the
// way database/sql drivers register themselves — the entrypoint blank-
// imports both so Detect has something to choose between.
func Register(family Family, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[family] = factory
}

// Detect picks a registered Driver factory. If override is non-empty it is
// used verbatim (config override); otherwise the family is chosen from
// runtime.GOOS, mirroring a capability-set selection rather than a build-tag
// split so every family's code compiles and can be unit-tested on any OS.
func Detect(opts Options, override Family) (Driver, error) {
	family := override
	if family == "" {
		family = defaultFamilyForGOOS(runtime.GOOS)
	}

	registryMu.RLock()
	factory, ok := registry[family]
	registryMu.RUnlock()
	if !ok {
		return nil, errkind.Invalidf("no driver registered for backend family %q", family)
	}
	return factory(opts), nil
}

func defaultFamilyForGOOS(goos string) Family {
	if goos == "windows" {
		return FamilyWinDbg
	}
	return FamilyLLDB
}
