package parse

import (
	"regexp"
	"strings"
)

// AssemblyEntry is one row of the managed assembly list.
type AssemblyEntry struct {
	ModuleID        string
	Name            string
	AssemblyVersion string
	Path            string
}

// assemblyLine matches lines such as:
//
//	0x00007ffa00001000 MyApp.Core 1.2.3.4 /app/MyApp.Core.dll
var assemblyLine = regexp.MustCompile(
	`^\s*(0x[0-9a-fA-F]+)\s+(\S+)\s+(\S+)\s+(\S+)\s*$`,
)

// ParseAssemblyList extracts the module id, name, assembly version, and
// on-disk path for every loaded managed assembly.
func ParseAssemblyList(text string) []AssemblyEntry {
	var entries []AssemblyEntry
	for _, line := range strings.Split(text, "\n") {
		m := assemblyLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		entries = append(entries, AssemblyEntry{
			ModuleID:        NormalizePointer(m[1]),
			Name:            m[2],
			AssemblyVersion: m[3],
			Path:            m[4],
		})
	}
	return entries
}
