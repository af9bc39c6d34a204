// Package lldbdriver implements driver.Driver over the LLVM-debugger family
// (lldb), where commands like "bt" and "thread list" are issued directly and
// the managed-runtime extension is loaded with "plugin load".
package lldbdriver

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/driver"
)

// Driver is the LLVM-debugger-family implementation of driver.Driver.
type Driver struct {
	*driver.Runner
}

// New constructs an lldb-backed driver. The subprocess is not started until
// Initialize is called.
func New(opts driver.Options) *Driver {
	return &Driver{Runner: driver.NewRunner(vocabulary{}, opts)}
}

func init() {
	driver.Register(driver.FamilyLLDB, func(opts driver.Options) driver.Driver {
		return New(opts)
	})
}

type vocabulary struct{}

func (vocabulary) Family() driver.Family { return driver.FamilyLLDB }

func (vocabulary) Argv(opts driver.Options) []string {
	exe := opts.ExecutablePath
	if exe == "" {
		exe = "lldb"
	}
	return []string{exe, "--no-use-colors"}
}

func (vocabulary) SentinelTemplate() string {
	return `script print("SENTINEL-%s")`
}

func (vocabulary) StartupProbe() string {
	return `script print("ready")`
}

func (vocabulary) OpenDumpCommand(dumpPath, executablePath string) string {
	if executablePath != "" {
		return fmt.Sprintf("target create --core %s %s", quote(dumpPath), quote(executablePath))
	}
	return fmt.Sprintf("target create --core %s", quote(dumpPath))
}

func (vocabulary) CloseDumpCommand() string {
	return "target delete --clean 0"
}

func (vocabulary) LoadExtensionCommand() string {
	return "plugin load libsosplugin.so"
}

func (vocabulary) ConfigureSymbolPathCommand(pathSpec string) string {
	return fmt.Sprintf("settings set target.debug-file-search-paths %s", quote(pathSpec))
}

// NormalizeCommand strips a leading "!" the Windows-debugging-engine family
// expects before managed-runtime extension commands (e.g. "!clrstack"),
// since lldb's sos plugin takes the bare verb ("clrstack"), per §4.1's
// platform-parity requirement.
func (vocabulary) NormalizeCommand(command string) string {
	trimmed := strings.TrimSpace(command)
	if strings.HasPrefix(trimmed, "!") {
		return strings.TrimPrefix(trimmed, "!")
	}
	if trimmed == "bt all" || trimmed == "k" {
		return "thread backtrace all"
	}
	return command
}

func quote(p string) string {
	return `"` + filepath.ToSlash(p) + `"`
}
