// Package operation implements the bulk filesystem operations: count, size,
// delete, copy and move over a list of roots.
//
// An Operation processes its roots one after the other. Per-node failures are
// recorded and never stop the run; cancellation is checked before every node
// and leaves the counters and failures gathered so far in place.
package operation

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/sdejongh/bulkops/pkg/compare"
	"github.com/sdejongh/bulkops/pkg/logging"
	"github.com/sdejongh/bulkops/pkg/models"
	"github.com/sdejongh/bulkops/pkg/ratelimit"
	"github.com/sdejongh/bulkops/pkg/storage"
	"github.com/sdejongh/bulkops/pkg/traverse"
)

// DefaultBufferSize is the chunk size used when copying file contents
const DefaultBufferSize = 8 * 1024

// Config is the configuration of an Operation
type Config struct {
	Kind        models.OperationKind
	Roots       []string
	Destination string
	Backend     storage.Backend
	Logger      logging.Logger

	// BufferSize is the copy chunk size; progress is published per chunk
	BufferSize int
	// Limiter caps copy bandwidth; nil disables limiting
	Limiter *ratelimit.Limiter
	// PreserveTimes propagates modification times on copy (best effort)
	PreserveTimes bool
	// Exclude skips matching children during traversal
	Exclude []string
	// SortByName visits children in name order
	SortByName bool
	// Verifier checks every copied file against its source; nil skips it
	Verifier compare.Comparator
}

func (c *Config) defaults() error {
	req := models.Request{Kind: c.Kind, Roots: c.Roots, Destination: c.Destination}
	if err := req.Validate(); err != nil {
		return err
	}

	if c.Backend == nil {
		c.Backend = storage.NewLocal()
	}

	if c.Logger == nil {
		c.Logger = logging.Noop
	}
	c.Logger = c.Logger.WithFields(logging.Fields{"svc": "operation." + c.Kind.String()})

	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}

	roots := make([]string, 0, len(c.Roots))
	for _, r := range c.Roots {
		roots = append(roots, filepath.Clean(r))
	}
	c.Roots = roots
	if c.Destination != "" {
		c.Destination = filepath.Clean(c.Destination)
	}

	return nil
}

// Operation is a single run of a bulk operation. Counters may be read from
// any goroutine while Run is in progress.
type Operation struct {
	cfg Config

	items atomic.Int64
	bytes atomic.Int64

	mu       sync.Mutex
	failures []models.Failure
}

// New creates an operation
func New(cfg Config) (*Operation, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid operation configuration: %w", err)
	}
	return &Operation{cfg: cfg}, nil
}

// Kind returns the operation kind
func (o *Operation) Kind() models.OperationKind {
	return o.cfg.Kind
}

// Roots returns the cleaned roots
func (o *Operation) Roots() []string {
	return append([]string(nil), o.cfg.Roots...)
}

// ItemCount returns the number of nodes processed so far
func (o *Operation) ItemCount() int64 {
	return o.items.Load()
}

// ByteCount returns the number of bytes processed so far
func (o *Operation) ByteCount() int64 {
	return o.bytes.Load()
}

// Failures returns a copy of the failures recorded so far
func (o *Operation) Failures() []models.Failure {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.Failure(nil), o.failures...)
}

func (o *Operation) failureCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.failures)
}

func (o *Operation) recordFailure(ctx context.Context, path string, err error) {
	o.mu.Lock()
	o.failures = append(o.failures, models.Failure{Path: path, Err: err})
	o.mu.Unlock()

	o.cfg.Logger.Warn(ctx, "failed to process path", logging.Fields{"path": path, "error": err.Error()})
}

// Run processes every root. It returns nil once all roots have been visited,
// even if failures were recorded, and the context error when cancelled.
func (o *Operation) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("operation not started: %w", err)
	}

	for _, root := range o.cfg.Roots {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("operation cancelled: %w", err)
		}

		var err error
		switch o.cfg.Kind {
		case models.KindCount:
			err = o.walk(ctx, root, o.visitCount)
		case models.KindSize:
			err = o.walk(ctx, root, o.visitSize)
		case models.KindDelete:
			err = o.deleteRoot(ctx, root)
		case models.KindCopy:
			err = o.paste(ctx, root, o.copyRoot)
		case models.KindMove:
			err = o.paste(ctx, root, o.moveRoot)
		default:
			return fmt.Errorf("unsupported operation %q", o.cfg.Kind)
		}
		if err != nil {
			return fmt.Errorf("operation cancelled: %w", err)
		}
	}

	o.cfg.Logger.Debug(ctx, "operation finished", logging.Fields{
		"items":    o.ItemCount(),
		"bytes":    o.ByteCount(),
		"failures": o.failureCount(),
	})
	return nil
}

func (o *Operation) walkOptions(root string) []traverse.Option {
	var opts []traverse.Option
	if o.cfg.SortByName {
		opts = append(opts, traverse.WithTransform(traverse.SortByName))
	}
	if len(o.cfg.Exclude) > 0 {
		opts = append(opts, traverse.WithExclude(root, o.cfg.Exclude...))
	}
	return opts
}

// walk feeds every traversal event of root to visit, stopping when the
// context is done or visit returns an error.
func (o *Operation) walk(ctx context.Context, root string, visit func(context.Context, traverse.Event) error) error {
	for e := range traverse.Walk(ctx, o.cfg.Backend, root, o.walkOptions(root)...) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := visit(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
