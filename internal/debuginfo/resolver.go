// Package debuginfo resolves (module, method metadata token, intermediate
// offset) triples to source locations using portable debug-info files
// (sequence points), with per-module positive/negative caching.
package debuginfo

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// SequencePoint is one non-hidden sequence point of a method.
type SequencePoint struct {
	Offset    int
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Location is a resolved source location.
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Loader loads every non-hidden sequence point of debugFilePath, keyed by
// method metadata token. The portable-debug-info binary format itself is
// out of this package's scope; production wiring supplies a real loader,
// tests supply a fake one.
type Loader func(debugFilePath string) (map[string][]SequencePoint, error)

type moduleEntry struct {
	points map[string][]SequencePoint // nil means negative cache (not found)
}

// Resolver implements §4.5's resolve algorithm.
type Resolver struct {
	mu          sync.Mutex
	searchPaths []string
	loader      Loader
	cache       map[string]*moduleEntry // keyed by module logical name
}

// New constructs a Resolver that loads sequence points with loader.
func New(loader Loader) *Resolver {
	return &Resolver{
		loader: loader,
		cache:  make(map[string]*moduleEntry),
	}
}

// RegisterSearchPath adds a root to scan recursively when a debug file is
// not found side-by-side with its module.
func (r *Resolver) RegisterSearchPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.searchPaths {
		if p == path {
			return
		}
	}
	r.searchPaths = append(r.searchPaths, path)
}

// Resolve finds the source location for methodToken's sequence point whose
// offset is the greatest not exceeding intermediateOffset. Returns
// ok=false if the module's debug info (or the token within it) can't be
// found.
func (r *Resolver) Resolve(modulePath, methodToken string, intermediateOffset int) (Location, bool) {
	entry := r.loadModule(modulePath)
	if entry == nil || entry.points == nil {
		return Location{}, false
	}
	points, ok := entry.points[methodToken]
	if !ok || len(points) == 0 {
		return Location{}, false
	}

	sorted := append([]SequencePoint(nil), points...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	best := -1
	for i, p := range sorted {
		if p.Offset <= intermediateOffset {
			best = i
		} else {
			break
		}
	}
	if best == -1 {
		return Location{}, false
	}
	p := sorted[best]
	return Location{File: p.File, StartLine: p.StartLine, StartCol: p.StartCol, EndLine: p.EndLine, EndCol: p.EndCol}, true
}

func (r *Resolver) loadModule(modulePath string) *moduleEntry {
	logicalName := moduleLogicalName(modulePath)

	r.mu.Lock()
	if e, ok := r.cache[logicalName]; ok {
		r.mu.Unlock()
		return e
	}
	r.mu.Unlock()

	debugFile := r.findDebugFile(modulePath)
	var entry *moduleEntry
	if debugFile == "" {
		entry = &moduleEntry{points: nil}
	} else {
		points, err := r.loader(debugFile)
		if err != nil {
			entry = &moduleEntry{points: nil}
		} else {
			entry = &moduleEntry{points: points}
		}
	}

	r.mu.Lock()
	r.cache[logicalName] = entry
	r.mu.Unlock()
	return entry
}

func moduleLogicalName(modulePath string) string {
	base := filepath.Base(modulePath)
	return strings.TrimSuffix(strings.TrimSuffix(base, filepath.Ext(base)), "")
}

// debugFileExt is the portable debug-info file extension searched for,
// both side-by-side and across search roots.
const debugFileExt = ".pdb"

func (r *Resolver) findDebugFile(modulePath string) string {
	sideBySide := strings.TrimSuffix(modulePath, filepath.Ext(modulePath)) + debugFileExt
	if fileExists(sideBySide) {
		return sideBySide
	}

	wantName := moduleLogicalName(modulePath) + debugFileExt

	r.mu.Lock()
	roots := append([]string(nil), r.searchPaths...)
	r.mu.Unlock()

	for _, root := range roots {
		var found string
		_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil || found != "" {
				return nil
			}
			if info.IsDir() {
				return nil
			}
			if matchGlob(filepath.Base(path), wantName) {
				found = path
				return filepath.SkipAll
			}
			return nil
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
