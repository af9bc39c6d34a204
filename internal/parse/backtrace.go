package parse

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/report"
)

// lldbFrameLine matches the LLVM-debugger-family backtrace line shape:
//
//	frame #2: 0xabcd libcoreclr.so`function(args) at file.c:123
//
// Group 2 (optional) is a leading stack-pointer token some commands emit
// ahead of the instruction pointer; group 3 is always the instruction
// pointer. The module capture (group 4) is bounded by "[^`]+" so it can
// never cross the first back-tick on the line — the critical rule from
// §4.6: without this bound the module field would silently absorb
// fragments of the function text that itself contains a nested
// back-tick-separated module`function reference (as in S1).
var lldbFrameLine = regexp.MustCompile(
	"^\\s*frame\\s+#(\\d+):\\s+(?:(0x[0-9a-fA-F]+)\\s+)?(0x[0-9a-fA-F]+)\\s+([^`]+)`(.*)$",
)

// trailingSourceLocation matches a " at file:line" suffix, anchored to the
// end of the line so it is never confused with a back-tick-bounded nested
// reference earlier in the function text.
var trailingSourceLocation = regexp.MustCompile(`\s+at\s+([^\s:()]+):(\d+)\s*$`)

// ParseLLDBFrame parses one LLVM-debugger-family backtrace line into a
// Frame. It returns false if line does not match the expected shape (the
// caller should treat a non-matching line as noise and skip it, not abort
// the whole backtrace).
func ParseLLDBFrame(line string) (report.Frame, bool) {
	m := lldbFrameLine.FindStringSubmatch(line)
	if m == nil {
		return report.Frame{}, false
	}

	frameNum, err := strconv.Atoi(m[1])
	if err != nil {
		return report.Frame{}, false
	}

	f := report.Frame{
		FrameNumber: frameNum,
	}
	if m[2] != "" {
		f.StackPointer = NormalizePointer(m[2])
	}
	f.InstructionPointer = NormalizePointer(m[3])
	f.Module = strings.TrimSpace(m[4])

	rest := m[5]
	if loc := trailingSourceLocation.FindStringSubmatch(rest); loc != nil {
		f.SourceFile = path.Base(loc[1])
		if line, err := strconv.Atoi(loc[2]); err == nil {
			f.LineNumber = line
		}
		rest = rest[:len(rest)-len(loc[0])]
	}
	f.Function = strings.TrimSpace(rest)

	if sp, ok := ParsePointer(f.StackPointer); ok {
		f.StackPointerValue = sp
	}

	return f, true
}

// windbgFrameLine matches the Windows-debugging-engine-family backtrace
// line shape:
//
//	00 00000253`9abcd000 00007ffa`12345678 ntdll!NtWaitForSingleObject+0x14
//
// with module/function separated by '!' rather than a back-tick; the
// back-tick there is pure digit-grouping punctuation inside the two
// addresses, stripped by ParsePointer.
var windbgFrameLine = regexp.MustCompile(
	`^\s*([0-9a-fA-F]+)\s+([0-9a-fA-F` + "`" + `]+)\s+([0-9a-fA-F` + "`" + `]+)\s+([^!]+)!(\S+)(?:\s+\[([^@]+)@\s*(\d+)\])?`,
)

// ParseWinDbgFrame parses one Windows-debugging-engine-family backtrace
// line into a Frame.
func ParseWinDbgFrame(line string) (report.Frame, bool) {
	m := windbgFrameLine.FindStringSubmatch(line)
	if m == nil {
		return report.Frame{}, false
	}

	frameNum, err := strconv.ParseInt(m[1], 16, 32)
	if err != nil {
		return report.Frame{}, false
	}

	f := report.Frame{
		FrameNumber:        int(frameNum),
		StackPointer:       NormalizePointer(m[2]),
		InstructionPointer: NormalizePointer(m[3]),
		Module:             strings.TrimSpace(m[4]),
		Function:           strings.TrimSpace(m[5]),
	}
	if m[6] != "" {
		f.SourceFile = path.Base(strings.TrimSpace(m[6]))
	}
	if m[7] != "" {
		if line, err := strconv.Atoi(m[7]); err == nil {
			f.LineNumber = line
		}
	}
	if sp, ok := ParsePointer(f.StackPointer); ok {
		f.StackPointerValue = sp
	}

	return f, true
}

// ParseNativeBacktrace parses every frame line of a native backtrace for
// the given backend family ("lldb" or "windbg"), skipping lines that do not
// match a frame shape (headers, blank lines, thread banners).
func ParseNativeBacktrace(text, backendFamily string) []report.Frame {
	var frames []report.Frame
	parseLine := ParseLLDBFrame
	if backendFamily == "windbg" {
		parseLine = ParseWinDbgFrame
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if f, ok := parseLine(line); ok {
			frames = append(frames, f)
		}
	}
	return frames
}
