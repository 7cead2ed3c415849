package traverse

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/sdejongh/bulkops/pkg/storage"
)

// SortByName orders children by name so walks are deterministic
func SortByName(dir string, entries []storage.Entry) []storage.Entry {
	slices.SortFunc(entries, func(a, b storage.Entry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return entries
}

// Exclude returns a transform dropping children matched by any pattern.
// Patterns support:
//   - Simple glob patterns matched against the name: *.tmp, *.log
//   - Directory patterns matched against directories only: .git/, node_modules/
//   - Path patterns matched against the path relative to root: build/*, **/test/*
func Exclude(root string, patterns []string) Transform {
	var cleaned []string
	for _, p := range patterns {
		p = strings.TrimSpace(filepath.ToSlash(p))
		if p != "" && doublestar.ValidatePattern(strings.TrimSuffix(p, "/")) {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}

	return func(dir string, entries []storage.Entry) []storage.Entry {
		return slices.DeleteFunc(entries, func(e storage.Entry) bool {
			rel, err := filepath.Rel(root, filepath.Join(dir, e.Name))
			if err != nil {
				rel = e.Name
			}
			return shouldExclude(filepath.ToSlash(rel), e, cleaned)
		})
	}
}

// WithExclude skips children matched by patterns, relative to root
func WithExclude(root string, patterns ...string) Option {
	return WithTransform(Exclude(root, patterns))
}

func shouldExclude(rel string, e storage.Entry, patterns []string) bool {
	for _, pattern := range patterns {
		if dirPattern, ok := strings.CutSuffix(pattern, "/"); ok {
			if e.Type == storage.TypeDirectory && match(dirPattern, rel, e.Name) {
				return true
			}
			continue
		}
		if match(pattern, rel, e.Name) {
			return true
		}
	}
	return false
}

// match checks the name for single-component patterns and the relative
// path for patterns containing a separator
func match(pattern, rel, name string) bool {
	if strings.Contains(pattern, "/") {
		ok, _ := doublestar.Match(pattern, rel)
		return ok
	}
	ok, _ := doublestar.Match(pattern, name)
	return ok
}
