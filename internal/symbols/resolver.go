// Package symbols composes backend-specific symbol search-path
// specifications and watches a dump's private symbol-cache directory for
// out-of-band changes.
package symbols

import (
	"strings"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/driver"
)

// InvalidateFunc clears a session's cached report and source-link resolver
// when the symbol surface changes; supplied by the session/report-cache
// layer so this package stays free of those dependencies.
type InvalidateFunc func(sessionID string)

// Compose builds a single path specification string for backendFamily from
// additionalPaths (local directories and remote URLs, in caller order) plus
// dumpCacheDir (the dump's private symbol cache, always included when
// non-empty), per §4.2's policies:
//   - local directories are ordered before remote URL entries
//   - elements are deduplicated preserving first occurrence
//   - on the WinDbg family, remote URLs are wrapped in its downstream-cache
//     syntax ("srv*<cache>*<url>"); on the LLDB family, remote URLs that
//     aren't also local directories are dropped from the backend path
func Compose(backendFamily driver.Family, additionalPaths []string, dumpCacheDir string) string {
	var all []string
	if dumpCacheDir != "" {
		all = append(all, dumpCacheDir)
	}
	all = append(all, additionalPaths...)

	var locals, remotes []string
	for _, p := range all {
		if isRemoteURL(p) {
			remotes = append(remotes, p)
		} else {
			locals = append(locals, p)
		}
	}

	ordered := dedupe(append(append([]string{}, locals...), remotes...))

	switch backendFamily {
	case driver.FamilyWinDbg:
		return strings.Join(wrapWinDbg(ordered, dumpCacheDir), ";")
	default:
		var kept []string
		for _, p := range ordered {
			if isRemoteURL(p) {
				continue
			}
			kept = append(kept, p)
		}
		return strings.Join(kept, ":")
	}
}

func isRemoteURL(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// wrapWinDbg wraps remote URLs in the WinDbg family's standard
// downstream-cache syntax ("srv*<cache>*<url>"), leaving local directories
// unwrapped.
func wrapWinDbg(paths []string, cacheDir string) []string {
	var out []string
	for _, p := range paths {
		if !isRemoteURL(p) {
			out = append(out, p)
			continue
		}
		if cacheDir != "" {
			out = append(out, "srv*"+cacheDir+"*"+p)
		} else {
			out = append(out, "srv*"+p)
		}
	}
	return out
}
