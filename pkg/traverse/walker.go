// Package traverse walks a directory tree depth first, reporting every node
// once before its children (Pre) and once after them (Post).
//
// Symbolic links are never followed, the root included. A directory whose
// listing cannot be opened is reported with the same error on both its Pre and
// Post events and yields no children; the walk then carries on with the next
// sibling.
package traverse

import (
	"context"
	"errors"
	"io"
	"iter"
	"path/filepath"

	"github.com/sdejongh/bulkops/pkg/storage"
)

// Phase tells whether an event precedes or follows a node's children
type Phase int

const (
	Pre Phase = iota
	Post
)

func (p Phase) String() string {
	if p == Pre {
		return "pre"
	}
	return "post"
}

// Event is one step of a walk
type Event struct {
	Path  string
	Type  storage.EntryType
	Phase Phase
	Err   error
}

// Transform rewrites the children of dir before they are visited
type Transform func(dir string, entries []storage.Entry) []storage.Entry

// DefaultBatchSize is the number of entries read per listing call
const DefaultBatchSize = 256

type frame struct {
	path    string
	reader  storage.DirReader
	entries []storage.Entry
	err     error
}

// Walker is a pull-style iterator over a tree. It holds directory handles
// open while descending and must be closed when abandoned early.
type Walker struct {
	ctx        context.Context
	backend    storage.Backend
	root       string
	transforms []Transform
	batchSize  int

	started bool
	stack   []*frame
	queue   []Event
	current Event
}

// Option configures a Walker
type Option func(*Walker)

// WithTransform adds a transform applied to every directory's children.
// Several transforms run in the order they were added.
func WithTransform(t Transform) Option {
	return func(w *Walker) {
		if t != nil {
			w.transforms = append(w.transforms, t)
		}
	}
}

// WithBatchSize sets how many entries are read per listing call
func WithBatchSize(n int) Option {
	return func(w *Walker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// New creates a walker for root
func New(ctx context.Context, backend storage.Backend, root string, opts ...Option) *Walker {
	w := &Walker{
		ctx:       ctx,
		backend:   backend,
		root:      filepath.Clean(root),
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Walk returns the events of a walk as a sequence. Directory handles are
// released when the range loop ends, including on break.
func Walk(ctx context.Context, backend storage.Backend, root string, opts ...Option) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		w := New(ctx, backend, root, opts...)
		defer w.Close()
		for w.Next() {
			if !yield(w.Event()) {
				return
			}
		}
	}
}

// Event returns the event produced by the last call to Next
func (w *Walker) Event() Event {
	return w.current
}

// Next advances to the next event and reports whether there is one
func (w *Walker) Next() bool {
	if len(w.queue) > 0 {
		w.current = w.queue[0]
		w.queue = w.queue[1:]
		return true
	}

	if !w.started {
		w.started = true
		w.current = w.visitRoot()
		return true
	}

	if len(w.stack) == 0 {
		return false
	}

	top := w.stack[len(w.stack)-1]
	entry, ok := w.nextChild(top)
	if !ok {
		w.stack = w.stack[:len(w.stack)-1]
		w.current = Event{Path: top.path, Type: storage.TypeDirectory, Phase: Post, Err: top.err}
		return true
	}

	w.current = w.visit(filepath.Join(top.path, entry.Name), entry.Type)
	return true
}

// Close releases every directory handle still open. The walker yields no
// further events afterwards.
func (w *Walker) Close() error {
	var errs []error
	for _, f := range w.stack {
		if f.reader != nil {
			errs = append(errs, f.reader.Close())
			f.reader = nil
		}
	}
	w.started = true
	w.stack = nil
	w.queue = nil
	return errors.Join(errs...)
}

func (w *Walker) visitRoot() Event {
	info, err := w.backend.Stat(w.ctx, w.root, false)
	if err != nil {
		w.queue = append(w.queue, Event{Path: w.root, Type: storage.TypeOther, Phase: Post, Err: err})
		return Event{Path: w.root, Type: storage.TypeOther, Phase: Pre, Err: err}
	}
	return w.visit(w.root, info.Type)
}

// visit returns the Pre event of a node. Directories are pushed on the
// stack; any other node gets its Post event queued right away.
func (w *Walker) visit(path string, typ storage.EntryType) Event {
	if typ != storage.TypeDirectory {
		w.queue = append(w.queue, Event{Path: path, Type: typ, Phase: Post})
		return Event{Path: path, Type: typ, Phase: Pre}
	}

	f := w.open(path)
	w.stack = append(w.stack, f)
	return Event{Path: path, Type: typ, Phase: Pre, Err: f.err}
}

// open reads the first batch of a listing so that open and read failures
// surface before the directory's Pre event.
func (w *Walker) open(path string) *frame {
	f := &frame{path: path}

	reader, err := w.backend.OpenDir(w.ctx, path)
	if err != nil {
		f.err = err
		return f
	}

	if len(w.transforms) > 0 {
		entries, err := readAll(reader)
		reader.Close()
		if err != nil {
			f.err = err
			return f
		}
		for _, t := range w.transforms {
			entries = t(path, entries)
		}
		f.entries = entries
		return f
	}

	entries, err := reader.ReadEntries(w.batchSize)
	switch {
	case errors.Is(err, io.EOF):
		reader.Close()
	case err != nil:
		reader.Close()
		f.err = err
	default:
		f.reader = reader
	}
	f.entries = entries
	if f.err != nil {
		f.entries = nil
	}
	return f
}

// nextChild pops the next child of f, fetching further batches as needed.
// A failure on a later batch ends the listing and is reported on Post.
func (w *Walker) nextChild(f *frame) (storage.Entry, bool) {
	for len(f.entries) == 0 {
		if f.reader == nil {
			return storage.Entry{}, false
		}
		entries, err := f.reader.ReadEntries(w.batchSize)
		if err != nil {
			f.reader.Close()
			f.reader = nil
			if !errors.Is(err, io.EOF) {
				f.err = err
			}
		}
		f.entries = entries
	}

	entry := f.entries[0]
	f.entries = f.entries[1:]
	return entry, true
}

func readAll(reader storage.DirReader) ([]storage.Entry, error) {
	var all []storage.Entry
	for {
		entries, err := reader.ReadEntries(0)
		all = append(all, entries...)
		if errors.Is(err, io.EOF) {
			return all, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
