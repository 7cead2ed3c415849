package operation

import (
	"context"

	"github.com/sdejongh/bulkops/pkg/logging"
	"github.com/sdejongh/bulkops/pkg/storage"
	"github.com/sdejongh/bulkops/pkg/traverse"
)

// counted records a failed Pre event and reports whether the node should be
// counted. A directory that could not be listed still counts; a node that
// could not be reached at all does not.
func (o *Operation) counted(ctx context.Context, e traverse.Event) bool {
	if e.Phase != traverse.Pre {
		return false
	}
	if e.Err != nil {
		o.recordFailure(ctx, e.Path, e.Err)
		return e.Type == storage.TypeDirectory
	}
	return true
}

func (o *Operation) visitCount(ctx context.Context, e traverse.Event) error {
	if o.counted(ctx, e) {
		o.items.Add(1)
	}
	return nil
}

// visitSize adds each node's own size; links are not followed
func (o *Operation) visitSize(ctx context.Context, e traverse.Event) error {
	if !o.counted(ctx, e) {
		return nil
	}
	o.items.Add(1)

	info, err := o.cfg.Backend.Stat(ctx, e.Path, false)
	if err != nil {
		o.cfg.Logger.Debug(ctx, "skipping size of unreadable node", logging.Fields{"path": e.Path, "error": err.Error()})
		return nil
	}
	o.bytes.Add(info.Size)
	return nil
}
