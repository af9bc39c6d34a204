package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// HeapStats is the parsed result of a managed-heap statistics dump.
type HeapStats struct {
	PerType        []HeapTypeEntry
	CommittedBytes *uint64
}

// HeapTypeEntry is one per-type row of managed-heap statistics.
type HeapTypeEntry struct {
	TypeName   string
	Count      uint64
	TotalBytes uint64
}

// heapTypeLine matches lines such as:
//
//	1,024  65,536  System.String
var heapTypeLine = regexp.MustCompile(
	`^\s*([\d,]+)\s+([\d,]+)\s+(\S.*)$`,
)

// heapCommittedLine matches a trailing total such as:
//
//	Total committed bytes: 4,194,304
var heapCommittedLine = regexp.MustCompile(`(?i)total\s+committed\s+bytes:\s*([\d,]+)`)

// ParseHeapStatistics extracts per-type counts and aggregate byte totals
// and, when reported, a committed-bytes total.
func ParseHeapStatistics(text string) HeapStats {
	var stats HeapStats
	for _, line := range strings.Split(text, "\n") {
		if m := heapCommittedLine.FindStringSubmatch(line); m != nil {
			if v, ok := parseThousands(m[1]); ok {
				stats.CommittedBytes = &v
			}
			continue
		}
		m := heapTypeLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		count, okC := parseThousands(m[1])
		bytes, okB := parseThousands(m[2])
		if !okC || !okB {
			continue
		}
		stats.PerType = append(stats.PerType, HeapTypeEntry{
			TypeName:   strings.TrimSpace(m[3]),
			Count:      count,
			TotalBytes: bytes,
		})
	}
	return stats
}

func parseThousands(s string) (uint64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
