// Package windbgdriver implements driver.Driver over the Windows
// debugging-engine family (cdb/windbg), where managed-runtime extension
// commands are prefixed with "!" (e.g. "!clrstack") and symbol paths are set
// with ".sympath"/".reload".
package windbgdriver

import (
	"fmt"
	"strings"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/driver"
)

// Driver is the Windows-debugging-engine-family implementation of
// driver.Driver.
type Driver struct {
	*driver.Runner
}

// New constructs a cdb/windbg-backed driver. The subprocess is not started
// until Initialize is called.
func New(opts driver.Options) *Driver {
	return &Driver{Runner: driver.NewRunner(vocabulary{}, opts)}
}

func init() {
	driver.Register(driver.FamilyWinDbg, func(opts driver.Options) driver.Driver {
		return New(opts)
	})
}

type vocabulary struct{}

func (vocabulary) Family() driver.Family { return driver.FamilyWinDbg }

func (vocabulary) Argv(opts driver.Options) []string {
	exe := opts.ExecutablePath
	if exe == "" {
		exe = "cdb"
	}
	return []string{exe, "-lines"}
}

func (vocabulary) SentinelTemplate() string {
	return `.echo SENTINEL-%s`
}

func (vocabulary) StartupProbe() string {
	return ".echo ready"
}

func (vocabulary) OpenDumpCommand(dumpPath, executablePath string) string {
	if executablePath != "" {
		return fmt.Sprintf(".opendump %s -y %s", quote(dumpPath), quote(executablePath))
	}
	return fmt.Sprintf(".opendump %s", quote(dumpPath))
}

func (vocabulary) CloseDumpCommand() string {
	return ".dump /close"
}

func (vocabulary) LoadExtensionCommand() string {
	return ".loadby sos coreclr"
}

func (vocabulary) ConfigureSymbolPathCommand(pathSpec string) string {
	return fmt.Sprintf(".sympath %s; .reload", quote(pathSpec))
}

// NormalizeCommand adds a leading "!" to managed-runtime extension commands
// issued in their bare LLVM-family spelling (e.g. "clrstack"), per §4.1's
// platform-parity requirement.
func (vocabulary) NormalizeCommand(command string) string {
	trimmed := strings.TrimSpace(command)
	switch trimmed {
	case "clrstack", "clrthreads", "dumpheap", "clrmodules", "pe", "eeheap":
		return "!" + trimmed
	case "thread backtrace all":
		return "~* k"
	case "thread list":
		return "~"
	}
	return command
}

func quote(p string) string {
	return `"` + p + `"`
}
