// Package memfs is an in-memory storage.Backend with fault injection, used to
// exercise the traversal and the bulk operations without touching the disk.
package memfs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sdejongh/bulkops/pkg/storage"
)

// Op names a backend call for fault injection and call counting
type Op string

const (
	OpOpenDir    Op = "opendir"
	OpReadDir    Op = "readdir"
	OpStat       Op = "stat"
	OpReadLink   Op = "readlink"
	OpMkdir      Op = "mkdir"
	OpSymlink    Op = "symlink"
	OpRemove     Op = "remove"
	OpRename     Op = "rename"
	OpOpen       Op = "open"
	OpCreate     Op = "create"
	OpWrite      Op = "write"
	OpSetModTime Op = "setmodtime"
)

type node struct {
	typ      storage.EntryType
	data     []byte
	target   string
	modTime  time.Time
	children map[string]*node
}

// FS is an in-memory filesystem rooted at "/"
type FS struct {
	mu       sync.Mutex
	root     *node
	faults   map[Op]map[string]error
	calls    map[Op]int
	openDirs int
	hook     func(op Op, path string)
	now      time.Time
}

var _ storage.Backend = (*FS)(nil)

// New creates an empty filesystem
func New() *FS {
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	return &FS{
		root:   &node{typ: storage.TypeDirectory, children: map[string]*node{}, modTime: now},
		faults: map[Op]map[string]error{},
		calls:  map[Op]int{},
		now:    now,
	}
}

// FailOn makes every op call on path return err
func (m *FS) FailOn(op Op, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.faults[op] == nil {
		m.faults[op] = map[string]error{}
	}
	m.faults[op][filepath.Clean(path)] = err
}

// OnCall registers a hook invoked before every backend call
func (m *FS) OnCall(hook func(op Op, path string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = hook
}

// Calls returns how many times op was called
func (m *FS) Calls(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// OpenDirs returns the number of directory readers not yet closed
func (m *FS) OpenDirs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openDirs
}

// MkdirAll creates a directory and its parents
func (m *FS) MkdirAll(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.root
	for _, part := range split(path) {
		child, ok := n.children[part]
		if !ok {
			child = &node{typ: storage.TypeDirectory, children: map[string]*node{}, modTime: m.now}
			n.children[part] = child
		}
		n = child
	}
}

// WriteFile creates a file and its parent directories
func (m *FS) WriteFile(path string, data []byte) {
	m.add(path, &node{typ: storage.TypeFile, data: append([]byte(nil), data...)})
}

// AddSymlink creates a symbolic link and its parent directories
func (m *FS) AddSymlink(path, target string) {
	m.add(path, &node{typ: storage.TypeSymlink, target: target})
}

// AddOther creates a node that is neither a file, a directory nor a link
func (m *FS) AddOther(path string) {
	m.add(path, &node{typ: storage.TypeOther})
}

// ReadFile returns the content of a file
func (m *FS) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.lookup(path)
	if err != nil {
		return nil, err
	}
	if n.typ != storage.TypeFile {
		return nil, fmt.Errorf("%s: not a file", path)
	}
	return append([]byte(nil), n.data...), nil
}

// Exists reports whether a node exists at path
func (m *FS) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.lookup(path)
	return err == nil
}

// Names lists the children of a directory in sorted order
func (m *FS) Names(path string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.lookup(path)
	if err != nil || n.typ != storage.TypeDirectory {
		return nil
	}
	return sortedNames(n)
}

func (m *FS) add(path string, n *node) {
	dir, name := filepath.Split(filepath.Clean(path))
	m.MkdirAll(dir)

	m.mu.Lock()
	defer m.mu.Unlock()
	parent, _ := m.lookup(dir)
	n.modTime = m.now
	parent.children[name] = n
}

func split(path string) []string {
	clean := strings.Trim(filepath.ToSlash(filepath.Clean(path)), "/")
	if clean == "" || clean == "." {
		return nil
	}
	return strings.Split(clean, "/")
}

func sortedNames(n *node) []string {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func pathErr(op Op, path string, err error) error {
	return &fs.PathError{Op: string(op), Path: path, Err: err}
}

// lookup must be called with the lock held
func (m *FS) lookup(path string) (*node, error) {
	n := m.root
	for _, part := range split(path) {
		if n.typ != storage.TypeDirectory {
			return nil, pathErr(OpStat, path, storage.ErrNotDirectory)
		}
		child, ok := n.children[part]
		if !ok {
			return nil, pathErr(OpStat, path, fs.ErrNotExist)
		}
		n = child
	}
	return n, nil
}

// parentOf must be called with the lock held
func (m *FS) parentOf(op Op, path string) (*node, string, error) {
	dir, name := filepath.Split(filepath.Clean(path))
	parent, err := m.lookup(dir)
	if err != nil {
		return nil, "", pathErr(op, path, fs.ErrNotExist)
	}
	if parent.typ != storage.TypeDirectory {
		return nil, "", pathErr(op, path, storage.ErrNotDirectory)
	}
	return parent, name, nil
}

// enter records the call, runs the hook and returns any injected fault.
// The hook runs without the lock so it may call back into the filesystem.
func (m *FS) enter(op Op, path string) error {
	path = filepath.Clean(path)
	m.mu.Lock()
	m.calls[op]++
	hook := m.hook
	err := m.faults[op][path]
	m.mu.Unlock()

	if hook != nil {
		hook(op, path)
	}
	if err != nil {
		return pathErr(op, path, err)
	}
	return nil
}

type dirReader struct {
	fs      *FS
	path    string
	names   []string
	entries map[string]storage.EntryType
	closed  bool
}

func (d *dirReader) ReadEntries(n int) ([]storage.Entry, error) {
	if err := d.fs.enter(OpReadDir, d.path); err != nil {
		return nil, err
	}
	if len(d.names) == 0 {
		return nil, io.EOF
	}
	if n <= 0 || n > len(d.names) {
		n = len(d.names)
	}
	batch := make([]storage.Entry, 0, n)
	for _, name := range d.names[:n] {
		batch = append(batch, storage.Entry{Name: name, Type: d.entries[name]})
	}
	d.names = d.names[n:]
	return batch, nil
}

func (d *dirReader) Close() error {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()
	if !d.closed {
		d.closed = true
		d.fs.openDirs--
	}
	return nil
}

// OpenDir snapshots the children of a directory
func (m *FS) OpenDir(ctx context.Context, path string) (storage.DirReader, error) {
	if err := m.enter(OpOpenDir, path); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.lookup(path)
	if err != nil {
		return nil, err
	}
	if n.typ != storage.TypeDirectory {
		return nil, pathErr(OpOpenDir, path, storage.ErrNotDirectory)
	}

	d := &dirReader{fs: m, path: filepath.Clean(path), names: sortedNames(n), entries: map[string]storage.EntryType{}}
	for name, child := range n.children {
		d.entries[name] = child.typ
	}
	m.openDirs++
	return d, nil
}

// Stat returns node metadata; links are resolved one level when followLinks is set
func (m *FS) Stat(ctx context.Context, path string, followLinks bool) (*storage.FileInfo, error) {
	if err := m.enter(OpStat, path); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.lookup(path)
	if err != nil {
		return nil, err
	}
	if followLinks && n.typ == storage.TypeSymlink {
		target := n.target
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(path), target)
		}
		if n, err = m.lookup(target); err != nil {
			return nil, err
		}
	}

	info := &storage.FileInfo{Path: filepath.Clean(path), Type: n.typ, ModTime: n.modTime}
	switch n.typ {
	case storage.TypeFile:
		info.Size = int64(len(n.data))
		info.Mode = 0644
	case storage.TypeSymlink:
		info.Size = int64(len(n.target))
		info.Mode = fs.ModeSymlink | 0777
	case storage.TypeDirectory:
		info.Mode = fs.ModeDir | 0755
	default:
		info.Mode = fs.ModeNamedPipe | 0644
	}
	return info, nil
}

// ReadLink returns the stored link target
func (m *FS) ReadLink(ctx context.Context, path string) (string, error) {
	if err := m.enter(OpReadLink, path); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.lookup(path)
	if err != nil {
		return "", err
	}
	if n.typ != storage.TypeSymlink {
		return "", pathErr(OpReadLink, path, fs.ErrInvalid)
	}
	return n.target, nil
}

func (m *FS) create(op Op, path string, n *node) error {
	if err := m.enter(op, path); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	parent, name, err := m.parentOf(op, path)
	if err != nil {
		return err
	}
	if _, exists := parent.children[name]; exists {
		return pathErr(op, path, fs.ErrExist)
	}
	n.modTime = m.now
	parent.children[name] = n
	return nil
}

// Mkdir creates a single directory
func (m *FS) Mkdir(ctx context.Context, path string) error {
	return m.create(OpMkdir, path, &node{typ: storage.TypeDirectory, children: map[string]*node{}})
}

// Symlink creates a symbolic link
func (m *FS) Symlink(ctx context.Context, target, path string) error {
	return m.create(OpSymlink, path, &node{typ: storage.TypeSymlink, target: target})
}

// Remove deletes a node; directories must be empty
func (m *FS) Remove(ctx context.Context, path string) error {
	if err := m.enter(OpRemove, path); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	parent, name, err := m.parentOf(OpRemove, path)
	if err != nil {
		return err
	}
	n, ok := parent.children[name]
	if !ok {
		return pathErr(OpRemove, path, fs.ErrNotExist)
	}
	if n.typ == storage.TypeDirectory && len(n.children) > 0 {
		return pathErr(OpRemove, path, fmt.Errorf("directory not empty"))
	}
	delete(parent.children, name)
	return nil
}

// Rename moves a node; the destination must not exist
func (m *FS) Rename(ctx context.Context, from, to string) error {
	if err := m.enter(OpRename, from); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	src, srcName, err := m.parentOf(OpRename, from)
	if err != nil {
		return err
	}
	n, ok := src.children[srcName]
	if !ok {
		return pathErr(OpRename, from, fs.ErrNotExist)
	}
	dst, dstName, err := m.parentOf(OpRename, to)
	if err != nil {
		return err
	}
	if _, exists := dst.children[dstName]; exists {
		return pathErr(OpRename, to, fs.ErrExist)
	}
	delete(src.children, srcName)
	dst.children[dstName] = n
	return nil
}

// Open opens a file for reading
func (m *FS) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := m.enter(OpOpen, path); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.lookup(path)
	if err != nil {
		return nil, err
	}
	if n.typ == storage.TypeDirectory {
		return nil, pathErr(OpOpen, path, fs.ErrInvalid)
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), n.data...))), nil
}

type fileWriter struct {
	fs   *FS
	path string
	node *node
}

func (w *fileWriter) Write(p []byte) (int, error) {
	if err := w.fs.enter(OpWrite, w.path); err != nil {
		return 0, err
	}
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	w.node.data = append(w.node.data, p...)
	return len(p), nil
}

func (w *fileWriter) Close() error {
	return nil
}

// Create creates a new empty file
func (m *FS) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	n := &node{typ: storage.TypeFile}
	if err := m.create(OpCreate, path, n); err != nil {
		return nil, err
	}
	return &fileWriter{fs: m, path: filepath.Clean(path), node: n}, nil
}

// SetModTime sets the modification time of a node
func (m *FS) SetModTime(ctx context.Context, path string, t time.Time) error {
	if err := m.enter(OpSetModTime, path); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.lookup(path)
	if err != nil {
		return err
	}
	n.modTime = t
	return nil
}

// Close does nothing
func (m *FS) Close() error {
	return nil
}
