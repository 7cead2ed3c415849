package traverse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sdejongh/bulkops/pkg/storage"
	"github.com/sdejongh/bulkops/pkg/storage/memfs"
)

func TestSortByName(t *testing.T) {
	entries := []storage.Entry{{Name: "c"}, {Name: "a"}, {Name: "b"}}
	got := SortByName("/", entries)
	assert.Equal(t, []storage.Entry{{Name: "a"}, {Name: "b"}, {Name: "c"}}, got)
}

func TestExclude(t *testing.T) {
	m := memfs.New()
	m.WriteFile("/r/keep.txt", nil)
	m.WriteFile("/r/scratch.tmp", nil)
	m.WriteFile("/r/.git/config", nil)
	m.WriteFile("/r/build/out.bin", nil)
	m.WriteFile("/r/src/build/keep.go", nil)
	m.WriteFile("/r/src/test/data.json", nil)
	m.WriteFile("/r/node_modules", nil)

	var visited []string
	for e := range Walk(context.Background(), m, "/r",
		WithExclude("/r", "*.tmp", ".git/", "build/*", "**/test/*", "node_modules/")) {
		if e.Phase == Pre {
			visited = append(visited, e.Path)
		}
	}

	assert.Equal(t, []string{
		"/r",
		"/r/build",
		"/r/keep.txt",
		"/r/node_modules",
		"/r/src",
		"/r/src/build",
		"/r/src/build/keep.go",
		"/r/src/test",
	}, visited)
}

func TestExcludeWithoutPatterns(t *testing.T) {
	assert.Nil(t, Exclude("/r", nil))
	assert.Nil(t, Exclude("/r", []string{" ", ""}))
}
