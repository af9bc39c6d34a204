package parse

import (
	"regexp"
	"strings"
)

// registerLine matches "name = 0xHEX" or "name = HEX" pairs, one per line.
var registerLine = regexp.MustCompile(`(?m)([A-Za-z][A-Za-z0-9]*)\s*=\s*(0[xX])?([0-9a-fA-F]+)`)

// ParseRegisters parses "name = 0xHEX" pairs per line into a map. The "0x"
// prefix is preserved exactly as it appeared in the input (present or
// absent) so formatting stays uniform with however the source line wrote
// it, rather than being forced through the central pointer formatter.
func ParseRegisters(text string) map[string]string {
	out := make(map[string]string)
	for _, m := range registerLine.FindAllStringSubmatch(text, -1) {
		name := m[1]
		value := m[2] + m[3]
		out[name] = value
	}
	return out
}
