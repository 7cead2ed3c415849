package operation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/sdejongh/bulkops/pkg/storage"
)

var numberSuffix = regexp.MustCompile(`^(.*?\s+)(\d+)$`)

// SplitName separates a file name into base and extension (dot included).
// Names starting with a dot and names without one have no extension.
func SplitName(name string) (base, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return name, ""
	}
	return name[:i], name[i:]
}

// IncrementName bumps a trailing " <number>" or appends " 2"
func IncrementName(base string) string {
	if m := numberSuffix.FindStringSubmatch(base); m != nil {
		if n, err := strconv.ParseInt(m[2], 10, 64); err == nil && n < 1<<63-1 {
			return m[1] + strconv.FormatInt(n+1, 10)
		}
		return base + " 2"
	}
	if base == "" {
		return "2"
	}
	return base + " 2"
}

// NonExistentName returns name, or the first incremented variant of it,
// that does not exist in dir. Directories never have an extension split off.
func NonExistentName(ctx context.Context, backend storage.Backend, dir, name string, isDir bool) (string, error) {
	base, ext := name, ""
	if !isDir {
		base, ext = SplitName(name)
	}

	for {
		candidate := base + ext
		_, err := backend.Stat(ctx, filepath.Join(dir, candidate), false)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check destination name: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		base = IncrementName(base)
	}
}
