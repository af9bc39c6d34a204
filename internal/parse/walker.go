package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// WalkerThread is one thread enumerated by the managed-runtime walker
// companion process.
type WalkerThread struct {
	OSThreadIDDecimal int
	ManagedThreadID   string
}

// WalkerFrame is one frame enumerated by the walker for a given thread.
type WalkerFrame struct {
	StackPointer string
	MethodToken  string
	ModulePath   string
	ILOffset     int
}

// WalkerStackRoot is one GC stack root the walker reports, bucketed to the
// frame whose stack pointer it falls within (§4.4).
type WalkerStackRoot struct {
	StackPointer string
	Description  string
}

// WalkerModule is one managed module the walker has loaded metadata for.
type WalkerModule struct {
	Path  string
	Token string
}

var walkerThreadLine = regexp.MustCompile(`(?i)^THREAD\s+(\d+)\s+managed=(\S+)\s*$`)
var walkerFrameLine = regexp.MustCompile(`(?i)^FRAME\s+(0x[0-9a-fA-F]+)\s+token=(\S+)\s+module=(\S+)\s+iloffset=(\d+)\s*$`)
var walkerRootLine = regexp.MustCompile(`(?i)^ROOT\s+(0x[0-9a-fA-F]+)\s+(.+)$`)
var walkerModuleLine = regexp.MustCompile(`(?i)^MODULE\s+(\S+)\s+token=(\S+)\s*$`)

// ParseWalkerThreads parses the walker's "THREAD <osid> managed=<id>" lines.
func ParseWalkerThreads(text string) []WalkerThread {
	var out []WalkerThread
	for _, line := range strings.Split(text, "\n") {
		m := walkerThreadLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, WalkerThread{OSThreadIDDecimal: id, ManagedThreadID: m[2]})
	}
	return out
}

// ParseWalkerFrames parses the walker's "FRAME <sp> token=<tok> module=<path>
// iloffset=<n>" lines.
func ParseWalkerFrames(text string) []WalkerFrame {
	var out []WalkerFrame
	for _, line := range strings.Split(text, "\n") {
		m := walkerFrameLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		offset, err := strconv.Atoi(m[4])
		if err != nil {
			continue
		}
		out = append(out, WalkerFrame{
			StackPointer: NormalizePointer(m[1]),
			MethodToken:  m[2],
			ModulePath:   m[3],
			ILOffset:     offset,
		})
	}
	return out
}

// ParseWalkerStackRoots parses the walker's "ROOT <sp> <description>" lines.
func ParseWalkerStackRoots(text string) []WalkerStackRoot {
	var out []WalkerStackRoot
	for _, line := range strings.Split(text, "\n") {
		m := walkerRootLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		out = append(out, WalkerStackRoot{
			StackPointer: NormalizePointer(m[1]),
			Description:  strings.TrimSpace(m[2]),
		})
	}
	return out
}

// ParseWalkerModules parses the walker's "MODULE <path> token=<tok>" lines.
func ParseWalkerModules(text string) []WalkerModule {
	var out []WalkerModule
	for _, line := range strings.Split(text, "\n") {
		m := walkerModuleLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		out = append(out, WalkerModule{Path: m[1], Token: m[2]})
	}
	return out
}
