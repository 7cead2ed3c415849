package operation

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/bulkops/pkg/storage/memfs"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		name    string
		expBase string
		expExt  string
	}{
		{"photo.jpg", "photo", ".jpg"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{".bashrc", ".bashrc", ""},
		{"README", "README", ""},
		{"trailing.", "trailing", "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, ext := SplitName(tt.name)
			assert.Equal(t, tt.expBase, base)
			assert.Equal(t, tt.expExt, ext)
		})
	}
}

func TestIncrementName(t *testing.T) {
	tests := []struct {
		base string
		exp  string
	}{
		{"a", "a 2"},
		{"a 2", "a 3"},
		{"photo 9", "photo 10"},
		{"a  7", "a  8"},
		{"2019", "2019 2"},
		{"", "2"},
		{"big 9223372036854775807", "big 9223372036854775807 2"},
		{"huge 99999999999999999999", "huge 99999999999999999999 2"},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			assert.Equal(t, tt.exp, IncrementName(tt.base))
		})
	}
}

func TestNonExistentName(t *testing.T) {
	ctx := context.Background()

	t.Run("FreeNameUnchanged", func(t *testing.T) {
		m := memfs.New()
		m.MkdirAll("/dst")
		name, err := NonExistentName(ctx, m, "/dst", "a.txt", false)
		require.NoError(t, err)
		assert.Equal(t, "a.txt", name)
	})

	t.Run("FileKeepsExtension", func(t *testing.T) {
		m := memfs.New()
		m.WriteFile("/dst/a.txt", nil)
		m.WriteFile("/dst/a 2.txt", nil)
		name, err := NonExistentName(ctx, m, "/dst", "a.txt", false)
		require.NoError(t, err)
		assert.Equal(t, "a 3.txt", name)
	})

	t.Run("DirectoryNameIsWhole", func(t *testing.T) {
		m := memfs.New()
		m.MkdirAll("/dst/v1.0")
		name, err := NonExistentName(ctx, m, "/dst", "v1.0", true)
		require.NoError(t, err)
		assert.Equal(t, "v1.0 2", name)
	})

	t.Run("DanglingLinkCountsAsTaken", func(t *testing.T) {
		m := memfs.New()
		m.AddSymlink("/dst/l", "/nowhere")
		name, err := NonExistentName(ctx, m, "/dst", "l", false)
		require.NoError(t, err)
		assert.Equal(t, "l 2", name)
	})

	t.Run("StatError", func(t *testing.T) {
		m := memfs.New()
		m.MkdirAll("/dst")
		m.FailOn(memfs.OpStat, "/dst/a", fs.ErrPermission)
		_, err := NonExistentName(ctx, m, "/dst", "a", false)
		assert.True(t, errors.Is(err, fs.ErrPermission))
	})
}
