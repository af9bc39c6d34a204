package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// ExceptionInfo is the parsed result of the current exception context
// (§4.7 step 1), when the dump records one.
type ExceptionInfo struct {
	Type               string
	Address            string
	Message            string
	InnerException     []string
	FaultingOSThreadID int
	HasFaultingThread  bool
}

var (
	exceptionTypeLine    = regexp.MustCompile(`(?i)^\s*exception\s+type:\s*(\S.*)$`)
	exceptionAddressLine = regexp.MustCompile(`(?i)^\s*exception\s+address:\s*(\S+)$`)
	exceptionThreadLine  = regexp.MustCompile(`(?i)^\s*faulting\s+thread:\s*(\d+)$`)
	exceptionMessageLine = regexp.MustCompile(`(?i)^\s*message:\s*(\S.*)$`)
	exceptionInnerLine   = regexp.MustCompile(`(?i)^\s*inner\s*exception:\s*(\S.*)$`)
)

// ParseExceptionInfo extracts the exception type, address, faulting OS
// thread, message, and inner-exception chain from the raw "exception
// info" dump. Returns ok=false when the dump records no exception (a
// clean, non-faulting snapshot).
func ParseExceptionInfo(text string) (ExceptionInfo, bool) {
	var info ExceptionInfo
	found := false
	for _, line := range strings.Split(text, "\n") {
		if m := exceptionTypeLine.FindStringSubmatch(line); m != nil {
			info.Type = strings.TrimSpace(m[1])
			found = true
			continue
		}
		if m := exceptionAddressLine.FindStringSubmatch(line); m != nil {
			info.Address = m[1]
			continue
		}
		if m := exceptionThreadLine.FindStringSubmatch(line); m != nil {
			if id, err := strconv.Atoi(m[1]); err == nil {
				info.FaultingOSThreadID = id
				info.HasFaultingThread = true
			}
			continue
		}
		if m := exceptionMessageLine.FindStringSubmatch(line); m != nil {
			info.Message = strings.TrimSpace(m[1])
			continue
		}
		if m := exceptionInnerLine.FindStringSubmatch(line); m != nil {
			info.InnerException = append(info.InnerException, strings.TrimSpace(m[1]))
			continue
		}
	}
	return info, found
}
