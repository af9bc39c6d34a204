// Package walker provides a second, independent view of a managed process
// via a companion helper subprocess, used to enrich native backtraces with
// method signatures, parameters, locals, and source locations.
package walker

import (
	"context"
	"fmt"
	"sort"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/driver"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/errkind"
	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/parse"
)

// Walker talks to the managedwalker companion helper process over the same
// sentinel-framed command channel mechanics as the debugger driver (§4.1),
// keeping C4 itself free of any direct memory-format parsing: every
// response is handed to a dedicated internal/parse function.
type Walker struct {
	ch         *driver.Channel
	executable string
	dumpPath   string
}

// Options configures the companion helper process.
type Options struct {
	Executable     string
	StartupTimeout int
}

// Open spawns the companion helper process and opens dumpPath against it.
// Returns false (no error) if the helper could not open the dump but did
// start, per the contract's success? return.
func Open(ctx context.Context, opts Options, dumpPath string) (*Walker, bool, error) {
	exe := opts.Executable
	if exe == "" {
		exe = "managedwalker"
	}
	ch, err := driver.NewChannel(ctx, []string{exe}, "ECHO SENTINEL-%s")
	if err != nil {
		return nil, false, errkind.Wrap(errkind.KindBackendUnavailable, "start managed-runtime walker", err)
	}

	w := &Walker{ch: ch, executable: exe}
	out, err := w.ch.Send(ctx, fmt.Sprintf("OPEN %s", dumpPath))
	if err != nil {
		ch.Dispose()
		return nil, false, errkind.Wrap(errkind.KindBackendUnavailable, "managed-runtime walker open failed", err)
	}
	if !containsOK(out) {
		return w, false, nil
	}
	w.dumpPath = dumpPath
	return w, true, nil
}

func containsOK(s string) bool {
	for _, line := range splitLines(s) {
		if line == "OK" {
			return true
		}
	}
	return false
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// EnumerateThreads lists every managed thread.
func (w *Walker) EnumerateThreads(ctx context.Context) ([]parse.WalkerThread, error) {
	out, err := w.ch.Send(ctx, "ENUM THREADS")
	if err != nil {
		return nil, err
	}
	return parse.ParseWalkerThreads(out), nil
}

// EnumerateFrames lists every frame of the given OS thread id.
func (w *Walker) EnumerateFrames(ctx context.Context, osThreadID int) ([]parse.WalkerFrame, error) {
	out, err := w.ch.Send(ctx, fmt.Sprintf("ENUM FRAMES %d", osThreadID))
	if err != nil {
		return nil, err
	}
	return parse.ParseWalkerFrames(out), nil
}

// EnumerateStackRoots lists every GC stack root of the given OS thread id.
func (w *Walker) EnumerateStackRoots(ctx context.Context, osThreadID int) ([]parse.WalkerStackRoot, error) {
	out, err := w.ch.Send(ctx, fmt.Sprintf("ENUM ROOTS %d", osThreadID))
	if err != nil {
		return nil, err
	}
	return parse.ParseWalkerStackRoots(out), nil
}

// EnumerateModules lists every loaded managed module.
func (w *Walker) EnumerateModules(ctx context.Context) ([]parse.WalkerModule, error) {
	out, err := w.ch.Send(ctx, "ENUM MODULES")
	if err != nil {
		return nil, err
	}
	return parse.ParseWalkerModules(out), nil
}

// LookupType resolves a managed type by name to its helper-internal
// description text, or an empty string if not found.
func (w *Walker) LookupType(ctx context.Context, name string) (string, error) {
	out, err := w.ch.Send(ctx, fmt.Sprintf("LOOKUP TYPE %s", name))
	if err != nil {
		return "", err
	}
	return out, nil
}

// InspectObject dumps the fields of the object at address, bounded by
// maxDepth/maxArrayElems/maxStringLen. methodTable, when non-empty,
// disambiguates the object's runtime type for the helper.
func (w *Walker) InspectObject(ctx context.Context, address, methodTable string, maxDepth, maxArrayElems, maxStringLen int) (string, error) {
	cmd := fmt.Sprintf("INSPECT %s %s %d %d %d", address, methodTable, maxDepth, maxArrayElems, maxStringLen)
	return w.ch.Send(ctx, cmd)
}

// Close releases the companion helper process.
func (w *Walker) Close() {
	w.ch.Dispose()
}

// BucketRootsByFrame implements the correlation rule of §4.4: a root whose
// address is >= frame F's stack pointer belongs to F, choosing the largest
// such frame stack pointer not exceeding the root's address. frames must be
// sorted by StackPointerValue ascending.
func BucketRootsByFrame(frames []parse.WalkerFrame, roots []parse.WalkerStackRoot) map[int][]parse.WalkerStackRoot {
	sorted := append([]parse.WalkerFrame(nil), frames...)
	sort.Slice(sorted, func(i, j int) bool {
		return spValue(sorted[i].StackPointer) < spValue(sorted[j].StackPointer)
	})

	out := make(map[int][]parse.WalkerStackRoot)
	for _, root := range roots {
		rootSP := spValue(root.StackPointer)
		best := -1
		for i, f := range sorted {
			fsp := spValue(f.StackPointer)
			if fsp <= rootSP {
				best = i
			} else {
				break
			}
		}
		if best == -1 {
			continue
		}
		out[best] = append(out[best], root)
	}
	return out
}

func spValue(s string) uint64 {
	v, _ := parse.ParsePointer(s)
	return v
}

// ResolveILOffset implements §4.4's instruction-pointer-to-intermediate-
// offset rule: scan entries for start <= ip < end and return its IL offset;
// "unavailable" (ok=false) if none match.
func ResolveILOffset(entries []NativeToILEntry, ip uint64) (int, bool) {
	for _, e := range entries {
		if e.Start <= ip && ip < e.End {
			return e.ILOffset, true
		}
	}
	return 0, false
}

// NativeToILEntry is one row of a method's native-instruction-range to
// intermediate-language-offset map.
type NativeToILEntry struct {
	Start    uint64
	End      uint64
	ILOffset int
}
