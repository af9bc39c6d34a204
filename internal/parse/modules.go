package parse

import (
	"regexp"
	"strings"
)

// ModuleEntry is one row of the native module list.
type ModuleEntry struct {
	Name        string
	BaseAddress string
	Version     string
}

// moduleLine matches lines such as:
//
//	0x00007ffa00000000 libcoreclr.so  (6.0.1.0)
var moduleLine = regexp.MustCompile(
	`^\s*(0x[0-9a-fA-F]+)\s+(\S+)(?:\s+\(([^)]+)\))?\s*$`,
)

// ParseModuleList extracts module name, base address, and version where
// available.
func ParseModuleList(text string) []ModuleEntry {
	var entries []ModuleEntry
	for _, line := range strings.Split(text, "\n") {
		m := moduleLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		entries = append(entries, ModuleEntry{
			BaseAddress: NormalizePointer(m[1]),
			Name:        m[2],
			Version:     m[3],
		})
	}
	return entries
}
