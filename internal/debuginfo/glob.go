package debuginfo

import (
	"path/filepath"
	"strings"
)

// matchGlob performs simple glob matching with "**" support, the same
// shape as the source indexer's matchGlob/matchDoubleGlob, generalized from
// matching source-file paths to matching portable debug-info file names.
func matchGlob(path, pattern string) bool {
	path = strings.ReplaceAll(path, "\\", "/")
	pattern = strings.ReplaceAll(pattern, "\\", "/")

	if strings.Contains(pattern, "**") {
		return matchDoubleGlob(path, pattern)
	}
	return matchSimpleGlob(path, pattern)
}

func matchSimpleGlob(path, pattern string) bool {
	pi := 0
	si := 0

	for pi < len(pattern) && si < len(path) {
		switch pattern[pi] {
		case '*':
			pi++
			if pi >= len(pattern) {
				return !strings.Contains(path[si:], "/")
			}
			for si < len(path) && path[si] != '/' {
				if matchSimpleGlob(path[si:], pattern[pi:]) {
					return true
				}
				si++
			}
			return matchSimpleGlob(path[si:], pattern[pi:])
		case '?':
			if path[si] == '/' {
				return false
			}
			pi++
			si++
		default:
			if pattern[pi] != path[si] {
				return false
			}
			pi++
			si++
		}
	}

	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}

	return pi >= len(pattern) && si >= len(path)
}

func matchDoubleGlob(path, pattern string) bool {
	parts := strings.Split(pattern, "**")

	if parts[0] != "" {
		if !strings.HasPrefix(path, strings.TrimSuffix(parts[0], "/")) &&
			!matchSimpleGlob(path, parts[0]+"*") {
			return false
		}
	}

	if len(parts) > 1 && parts[len(parts)-1] != "" {
		trailing := strings.TrimPrefix(parts[len(parts)-1], "/")
		if !matchSimpleGlob(filepath.Base(path), trailing) &&
			!strings.HasSuffix(path, trailing) {
			return false
		}
	}

	return true
}
