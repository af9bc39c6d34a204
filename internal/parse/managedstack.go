package parse

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/report"
)

// NativeFrameMarker is the sentinel some managed-stack dumps use to mark a
// frame as owned by the native call stack instead of the managed one. The
// managed-stack parser skips these; the native backtrace parser is
// responsible for them.
const NativeFrameMarker = "[NativeFrame]"

// fullManagedStackLine matches the full form: "SP IP method [file @ line]".
var fullManagedStackLine = regexp.MustCompile(
	`^\s*(0x[0-9a-fA-F]+)\s+(0x[0-9a-fA-F]+)\s+(.+?)(?:\s+\[([^@]+)@\s*(\d+)\])?\s*$`,
)

// ParseManagedStack parses a managed call stack dump, accepting either the
// full form ("SP IP method [file @ line]") or the simple form ("method"
// only, one per line). Lines containing NativeFrameMarker are skipped since
// that frame is owned by the native backtrace parser.
func ParseManagedStack(text string) []report.Frame {
	var frames []report.Frame
	frameNum := 0
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.Contains(trimmed, NativeFrameMarker) {
			continue
		}

		if m := fullManagedStackLine.FindStringSubmatch(trimmed); m != nil && strings.HasPrefix(m[1], "0x") {
			f := report.Frame{
				FrameNumber:        frameNum,
				StackPointer:       NormalizePointer(m[1]),
				InstructionPointer: NormalizePointer(m[2]),
				Function:           strings.TrimSpace(m[3]),
				IsManaged:          true,
			}
			if m[4] != "" {
				f.SourceFile = path.Base(strings.TrimSpace(m[4]))
			}
			if m[5] != "" {
				if ln, err := strconv.Atoi(m[5]); err == nil {
					f.LineNumber = ln
				}
			}
			if sp, ok := ParsePointer(f.StackPointer); ok {
				f.StackPointerValue = sp
			}
			frames = append(frames, f)
			frameNum++
			continue
		}

		// Simple form: bare method name, no stack/instruction pointer.
		frames = append(frames, report.Frame{
			FrameNumber: frameNum,
			Function:    trimmed,
			IsManaged:   true,
		})
		frameNum++
	}
	return frames
}
