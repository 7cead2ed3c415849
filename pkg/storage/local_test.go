package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, d DirReader, batch int) []string {
	t.Helper()
	var names []string
	for {
		entries, err := d.ReadEntries(batch)
		for _, e := range entries {
			names = append(names, e.Name)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
	}
	sort.Strings(names)
	return names
}

// TestLocalOpenDir tests streaming directory listings
func TestLocalOpenDir(t *testing.T) {
	ctx := context.Background()
	local := NewLocal()
	defer local.Close()

	tempDir := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, os.WriteFile(filepath.Join(tempDir, name), []byte(name), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(tempDir, "sub"), 0755))
	require.NoError(t, os.Symlink("a", filepath.Join(tempDir, "link")))

	t.Run("Batches", func(t *testing.T) {
		d, err := local.OpenDir(ctx, tempDir)
		require.NoError(t, err)
		defer d.Close()

		assert.Equal(t, []string{"a", "b", "c", "link", "sub"}, readAll(t, d, 2))
	})

	t.Run("AllAtOnce", func(t *testing.T) {
		d, err := local.OpenDir(ctx, tempDir)
		require.NoError(t, err)
		defer d.Close()

		assert.Equal(t, []string{"a", "b", "c", "link", "sub"}, readAll(t, d, 0))
	})

	t.Run("EntryTypes", func(t *testing.T) {
		d, err := local.OpenDir(ctx, tempDir)
		require.NoError(t, err)
		defer d.Close()

		entries, err := d.ReadEntries(0)
		require.NoError(t, err)
		types := map[string]EntryType{}
		for _, e := range entries {
			types[e.Name] = e.Type
		}
		assert.Equal(t, TypeFile, types["a"])
		assert.Equal(t, TypeDirectory, types["sub"])
		assert.Equal(t, TypeSymlink, types["link"])
	})

	t.Run("NotExist", func(t *testing.T) {
		_, err := local.OpenDir(ctx, filepath.Join(tempDir, "missing"))
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("NotDirectory", func(t *testing.T) {
		_, err := local.OpenDir(ctx, filepath.Join(tempDir, "a"))
		assert.ErrorIs(t, err, ErrNotDirectory)
	})
}

// TestLocalStat tests link handling in Stat
func TestLocalStat(t *testing.T) {
	ctx := context.Background()
	local := NewLocal()
	tempDir := t.TempDir()

	file := filepath.Join(tempDir, "file.txt")
	link := filepath.Join(tempDir, "link")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0644))
	require.NoError(t, os.Symlink(file, link))

	info, err := local.Stat(ctx, link, false)
	require.NoError(t, err)
	assert.Equal(t, TypeSymlink, info.Type)

	info, err = local.Stat(ctx, link, true)
	require.NoError(t, err)
	assert.Equal(t, TypeFile, info.Type)
	assert.Equal(t, int64(5), info.Size)

	_, err = local.Stat(ctx, filepath.Join(file, "child"), false)
	assert.ErrorIs(t, err, ErrNotDirectory)
}

// TestLocalCreate tests exclusive file creation
func TestLocalCreate(t *testing.T) {
	ctx := context.Background()
	local := NewLocal()
	path := filepath.Join(t.TempDir(), "new.txt")

	w, err := local.Create(ctx, path)
	require.NoError(t, err)
	_, err = w.Write([]byte("content"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = local.Create(ctx, path)
	assert.ErrorIs(t, err, fs.ErrExist)

	r, err := local.Open(ctx, path)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

// TestLocalSetModTime tests that links are not followed
func TestLocalSetModTime(t *testing.T) {
	ctx := context.Background()
	local := NewLocal()
	tempDir := t.TempDir()

	file := filepath.Join(tempDir, "file.txt")
	link := filepath.Join(tempDir, "link")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	require.NoError(t, os.Symlink(file, link))

	before, err := os.Stat(file)
	require.NoError(t, err)

	when := time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)
	require.NoError(t, local.SetModTime(ctx, link, when))

	after, err := os.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())

	require.NoError(t, local.SetModTime(ctx, file, when))
	after, err = os.Stat(file)
	require.NoError(t, err)
	assert.True(t, when.Equal(after.ModTime()))
}

// TestLocalMutations tests mkdir, symlink, rename and remove
func TestLocalMutations(t *testing.T) {
	ctx := context.Background()
	local := NewLocal()
	tempDir := t.TempDir()

	dir := filepath.Join(tempDir, "dir")
	require.NoError(t, local.Mkdir(ctx, dir))
	assert.ErrorIs(t, local.Mkdir(ctx, dir), fs.ErrExist)

	link := filepath.Join(dir, "link")
	require.NoError(t, local.Symlink(ctx, "../nowhere", link))
	target, err := local.ReadLink(ctx, link)
	require.NoError(t, err)
	assert.Equal(t, "../nowhere", target)

	assert.Error(t, local.Remove(ctx, dir), "non-empty directory")

	moved := filepath.Join(tempDir, "moved")
	require.NoError(t, local.Rename(ctx, dir, moved))
	_, err = os.Lstat(filepath.Join(moved, "link"))
	assert.NoError(t, err)

	require.NoError(t, local.Remove(ctx, filepath.Join(moved, "link")))
	require.NoError(t, local.Remove(ctx, moved))
	assert.ErrorIs(t, local.Remove(ctx, moved), fs.ErrNotExist)
}
