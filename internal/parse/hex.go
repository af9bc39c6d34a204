package parse

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatPointer is the single central point that normalizes any pointer-like
// value (stack pointer, instruction pointer, base address, register value)
// to the canonical lowercase "0x"-prefixed hex form required by §6.
func FormatPointer(value uint64) string {
	return fmt.Sprintf("0x%x", value)
}

// ParsePointer parses a hex string, with or without a "0x"/"0X" prefix, into
// its unsigned 64-bit value. Returns 0, false if s is not valid hex.
func ParsePointer(s string) (uint64, bool) {
	s = strings.TrimSpace(s)
	// WinDbg groups 64-bit addresses with an internal back-tick
	// ("00000253`9abcd000"); that usage is pure digit punctuation, distinct
	// from the back-tick module/function separator handled in backtrace.go.
	s = strings.ReplaceAll(s, "`", "")
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if trimmed == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(trimmed, 16, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// NormalizePointer re-emits s (any hex spelling) in the canonical form. If s
// is not valid hex, it is returned unchanged so callers can surface a
// parse diagnostic rather than silently drop data.
func NormalizePointer(s string) string {
	v, ok := ParsePointer(s)
	if !ok {
		return s
	}
	return FormatPointer(v)
}
