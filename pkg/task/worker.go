package task

import (
	"context"
	"time"

	"github.com/sdejongh/bulkops/pkg/logging"
	"github.com/sdejongh/bulkops/pkg/models"
	"github.com/sdejongh/bulkops/pkg/operation"
)

// worker owns the state machine of one task. Only the worker goroutine
// moves the state forward; the operation it drives runs on a goroutine of
// its own and is observed through its atomic counters.
type worker struct {
	m      *Manager
	h      *handle
	op     *operation.Operation
	state  models.TaskState
	first  models.TaskState
	logger logging.Logger

	itemsTotal int64
	bytesTotal int64
}

// totals reports whether the operation has known totals
func (w *worker) totals() bool {
	switch w.op.Kind() {
	case models.KindCopy, models.KindDelete, models.KindMove:
		return true
	default:
		return false
	}
}

func (w *worker) run(ctx context.Context) {
	defer w.h.cancel()
	w.first = w.state

	if err := w.m.sem.Acquire(ctx, 1); err != nil {
		w.logger.Info(ctx, "task cancelled while pending", nil)
		w.finish(ctx, true)
		return
	}
	defer w.m.sem.Release(1)

	if !w.advance(ctx) {
		w.finish(ctx, true)
		return
	}
	w.first = w.state
	start := time.Now()

	if err := w.prepare(ctx); err != nil {
		w.logger.Info(ctx, "task cancelled while preparing", nil)
		w.finish(ctx, true)
		return
	}

	errc := make(chan error, 1)
	go func() {
		errc <- w.op.Run(ctx)
	}()

	ticker := time.NewTicker(w.m.cfg.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.advance(ctx)
		case err := <-errc:
			cancelled := err != nil
			w.logger.Info(ctx, "task completed", logging.Fields{
				"duration":  time.Since(start).String(),
				"cancelled": cancelled,
				"items":     w.op.ItemCount(),
				"bytes":     w.op.ByteCount(),
				"failures":  len(w.op.Failures()),
			})
			w.finish(ctx, cancelled)
			return
		}
	}
}

// prepare measures the roots of operations that report totals
func (w *worker) prepare(ctx context.Context) error {
	switch w.op.Kind() {
	case models.KindMove:
		w.itemsTotal = int64(len(w.op.Roots()))
		return nil
	case models.KindCopy, models.KindDelete:
	default:
		return nil
	}

	// The run itself reports the failures the measuring pass would meet
	cfg := w.m.operationConfig(models.KindSize, w.op.Roots(), "")
	cfg.Logger = logging.Noop
	sizer, err := operation.New(cfg)
	if err != nil {
		return err
	}
	if err := sizer.Run(ctx); err != nil {
		return err
	}
	w.itemsTotal = sizer.ItemCount()
	w.bytesTotal = sizer.ByteCount()

	w.logger.Debug(ctx, "task prepared", logging.Fields{
		"items_total": w.itemsTotal,
		"bytes_total": w.bytesTotal,
	})
	return nil
}

func (w *worker) progress() (items, bytes models.Progress) {
	processedItems := w.op.ItemCount()
	processedBytes := w.op.ByteCount()
	if !w.totals() {
		return models.NormalizeProgress(processedItems, processedItems),
			models.NormalizeProgress(processedBytes, processedBytes)
	}
	return models.NormalizeProgress(w.itemsTotal, processedItems),
		models.NormalizeProgress(w.bytesTotal, processedBytes)
}

// advance publishes a Running snapshot. It reports false if the state can no
// longer move to Running.
func (w *worker) advance(ctx context.Context) bool {
	items, bytes := w.progress()
	next, err := w.state.Running(w.m.cfg.Clock.Now(), items, bytes)
	if err != nil {
		w.logger.Error(ctx, "cannot publish progress", err, nil)
		return false
	}
	w.state = next
	w.m.publishState(next)
	return true
}

// finish publishes the terminal state, then the report, and frees the id
func (w *worker) finish(ctx context.Context, cancelled bool) {
	now := w.m.cfg.Clock.Now()

	if w.state.Kind == models.StateRunning {
		items, bytes := w.progress()
		if next, err := w.state.Running(now, items, bytes); err == nil {
			w.state = next
		}
	}

	var (
		final models.TaskState
		err   error
	)
	if cancelled {
		final, err = w.state.Cancel(now, w.op.Failures())
	} else {
		final, err = w.state.Finish(now, w.op.Failures())
	}
	if err != nil {
		w.logger.Error(ctx, "cannot finish task", err, nil)
		final = w.state
	}
	w.state = final

	w.m.publishState(final)

	report := models.NewTaskReport(w.first, final)
	report.RunID = w.h.runID
	report.Roots = w.op.Roots()
	w.m.publish(event{report: report})

	w.m.release(w.h, final)
}
