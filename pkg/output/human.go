package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/sdejongh/bulkops/pkg/models"
)

// HumanFormatter formats output in human-readable format. It prints one
// line whenever a task changes state, ignoring progress ticks.
type HumanFormatter struct {
	writer io.Writer

	mu   sync.Mutex
	last map[models.TaskID]models.StateKind
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{last: make(map[models.TaskID]models.StateKind)}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writer = writer
	return nil
}

// Update prints a line when the kind of a task's state changes
func (f *HumanFormatter) Update(state models.TaskState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writer == nil || state.IsFinished() {
		return nil
	}
	if f.last[state.Task] == state.Kind {
		return nil
	}
	f.last[state.Task] = state.Kind

	_, err := fmt.Fprintf(f.writer, "%s %s: %s\n", taskLabel(state.Task, state.Operation, state.Target), state.Kind, state.Time.Wall.Format(time.TimeOnly))
	return err
}

// NotFound reports a cancel request for an unknown task
func (f *HumanFormatter) NotFound(nf models.TaskNotFound) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writer == nil {
		return nil
	}
	_, err := fmt.Fprintf(f.writer, "[%d] %s\n", nf.Task, color.YellowString("no such task"))
	return err
}

// Complete displays the summary of a finished task
func (f *HumanFormatter) Complete(report *models.TaskReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.last, report.Task)
	if f.writer == nil {
		f.writer = io.Discard
	}
	return writeSummary(f.writer, report)
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	if f.writer != nil {
		fmt.Fprintf(f.writer, "%s %v\n", color.RedString("Error:"), err)
	}
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

func writeSummary(w io.Writer, report *models.TaskReport) error {
	fmt.Fprintf(w, "%s %s in %s\n",
		taskLabel(report.Task, report.Operation, report.Target),
		statusString(report.Status),
		report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "    Items:    %s\n", humanize.Comma(report.Items))
	fmt.Fprintf(w, "    Data:     %s\n", formatBytes(report.Bytes))

	if report.Duration.Seconds() > 0 && report.Bytes > 0 && report.Operation.IsPaste() {
		avgSpeed := float64(report.Bytes) / report.Duration.Seconds()
		fmt.Fprintf(w, "    Speed:    %s/s\n", formatBytes(int64(avgSpeed)))
	}

	if len(report.Failures) > 0 {
		fmt.Fprintf(w, "    Failures: %d\n", len(report.Failures))
		for _, failure := range report.Failures {
			fmt.Fprintf(w, "      %s %s\n", color.RedString("✗"), failure)
		}
	}
	return nil
}

func taskLabel(id models.TaskID, op models.OperationKind, target models.Target) string {
	if op.IsPaste() {
		return fmt.Sprintf("[%d] %s %s -> %s", id, op, target.Source, target.Destination)
	}
	return fmt.Sprintf("[%d] %s %s", id, op, target.Source)
}

func statusString(kind models.StateKind) string {
	switch kind {
	case models.StateSuccess:
		return color.GreenString("✓ %s", kind)
	case models.StateFailed:
		return color.RedString("✗ %s", kind)
	case models.StateCancelled:
		return color.YellowString("⊘ %s", kind)
	default:
		return string(kind)
	}
}

// formatBytes formats bytes in human-readable format
func formatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}
