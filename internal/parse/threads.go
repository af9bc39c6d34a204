package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// ThreadListEntry is one row of the raw OS thread list.
type ThreadListEntry struct {
	OSThreadIDDecimal int
	ManagedThreadID   string
	State             string
	Name              string
}

// threadListLine matches lines such as:
//
//	Thread 3 (LWP 4821) "worker-pool" managed=0x2 state=Running
var threadListLine = regexp.MustCompile(
	`(?i)thread\s+\d+\s+\(LWP\s+(\d+)\)(?:\s+"([^"]*)")?(?:\s+managed=(\S+))?(?:\s+state=(\S+))?`,
)

// ParseThreadList extracts OS thread id (decimal) and, when present,
// managed thread id, state, and name from a raw thread-list dump.
func ParseThreadList(text string) []ThreadListEntry {
	var entries []ThreadListEntry
	for _, line := range strings.Split(text, "\n") {
		m := threadListLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		entries = append(entries, ThreadListEntry{
			OSThreadIDDecimal: id,
			Name:              m[2],
			ManagedThreadID:   m[3],
			State:             m[4],
		})
	}
	return entries
}

// ManagedThreadEntry is one row of the managed-runtime thread table.
type ManagedThreadEntry struct {
	ManagedThreadID string
	OSThreadIDHex   string
	OSThreadIDDec   int
	Apartment       string
	StateFlags      string
	IsDead          bool
}

// managedThreadLine matches lines such as:
//
//	12 2  0x1a2b  MTA  Dead (GCSpecial)
var managedThreadLine = regexp.MustCompile(
	`^\s*(\d+)\s+\d+\s+0x([0-9a-fA-F]+)\s+(\w+)\s+(.+?)\s*$`,
)

// ParseManagedThreadTable extracts managed thread id, OS id (hex, with a
// sibling decimal field), apartment, and state flags.
func ParseManagedThreadTable(text string) []ManagedThreadEntry {
	var entries []ManagedThreadEntry
	for _, line := range strings.Split(text, "\n") {
		m := managedThreadLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		osDec, err := strconv.ParseInt(m[2], 16, 64)
		if err != nil {
			continue
		}
		flags := m[4]
		entries = append(entries, ManagedThreadEntry{
			ManagedThreadID: m[1],
			OSThreadIDHex:   "0x" + m[2],
			OSThreadIDDec:   int(osDec),
			Apartment:       m[3],
			StateFlags:      flags,
			IsDead:          strings.Contains(strings.ToLower(flags), "dead"),
		})
	}
	return entries
}
