package output

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"

	"github.com/sdejongh/bulkops/pkg/models"
)

const barTemplate = `{{string . "prefix"}} {{counters . }} {{bar . "[" "=" ">" " " "]"}} {{percent . }} {{etime . }}`

// getUpdateInterval returns the minimum delay between two redraws
// Windows terminals have higher latency with ANSI sequences, so we use a longer interval
func getUpdateInterval() time.Duration {
	if runtime.GOOS == "windows" {
		return 300 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// taskBar is the bar of one running task
type taskBar struct {
	bar   *pb.ProgressBar
	bytes bool
}

// ProgressFormatter draws one progress bar per running task below the
// summaries of finished tasks.
type ProgressFormatter struct {
	writer    io.Writer
	termWidth int

	mu           sync.Mutex
	bars         map[models.TaskID]*taskBar
	order        []models.TaskID
	lastDisplay  time.Time
	displayLines int
}

// NewProgressFormatter creates a new progress bar formatter
func NewProgressFormatter() *ProgressFormatter {
	return &ProgressFormatter{bars: make(map[models.TaskID]*taskBar)}
}

// Start initializes the formatter
func (f *ProgressFormatter) Start(writer io.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.termWidth = terminalWidth(writer, 120)
	return nil
}

// Update creates or advances the bar of a running task
func (f *ProgressFormatter) Update(state models.TaskState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if state.Kind != models.StateRunning {
		return nil
	}

	tb, ok := f.bars[state.Task]
	if !ok {
		tb = f.newBar(state)
		f.bars[state.Task] = tb
		f.order = append(f.order, state.Task)
	}

	progress := state.Items
	if tb.bytes {
		progress = state.Bytes
	}
	tb.bar.SetTotal(progress.Total())
	tb.bar.SetCurrent(progress.Processed())

	now := time.Now()
	if !ok || now.Sub(f.lastDisplay) > getUpdateInterval() {
		f.render()
		f.lastDisplay = now
	}
	return nil
}

// newBar creates a static bar; rendering is driven by render
func (f *ProgressFormatter) newBar(state models.TaskState) *taskBar {
	tb := &taskBar{bytes: state.Operation == models.KindCopy || state.Operation == models.KindSize}

	bar := pb.New64(0)
	bar.SetTemplateString(barTemplate)
	bar.SetWriter(io.Discard)
	bar.SetWidth(f.termWidth)
	bar.Set(pb.Static, true)
	bar.Set(pb.Bytes, tb.bytes)
	bar.Set("prefix", taskLabel(state.Task, state.Operation, state.Target))
	tb.bar = bar.Start()
	return tb
}

// NotFound prints a line above the bars
func (f *ProgressFormatter) NotFound(nf models.TaskNotFound) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.above(func(w io.Writer) {
		fmt.Fprintf(w, "[%d] no such task\n", nf.Task)
	})
	return nil
}

// Complete removes the bar of a task and prints its summary
func (f *ProgressFormatter) Complete(report *models.TaskReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if tb, ok := f.bars[report.Task]; ok {
		tb.bar.Finish()
		delete(f.bars, report.Task)
		for i, id := range f.order {
			if id == report.Task {
				f.order = append(f.order[:i], f.order[i+1:]...)
				break
			}
		}
	}

	var err error
	f.above(func(w io.Writer) {
		err = writeSummary(w, report)
	})
	if len(f.bars) == 0 && f.writer != nil {
		fmt.Fprint(f.writer, "\033[?25h") // Show cursor
	}
	return err
}

// Error prints an error above the bars
func (f *ProgressFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.above(func(w io.Writer) {
		fmt.Fprintf(w, "Error: %v\n", err)
	})
	return nil
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}

// above clears the bars, lets write print permanent lines, then redraws
func (f *ProgressFormatter) above(write func(w io.Writer)) {
	if f.writer == nil {
		return
	}
	f.clear()
	write(f.writer)
	f.renderContent()
}

// clear erases the lines drawn by the previous render
func (f *ProgressFormatter) clear() {
	if f.displayLines == 0 {
		return
	}
	var escapeSeq strings.Builder
	for i := 0; i < f.displayLines; i++ {
		escapeSeq.WriteString("\033[1A") // Move up one line
		escapeSeq.WriteString("\033[2K") // Clear entire line
	}
	escapeSeq.WriteString("\r")
	fmt.Fprint(f.writer, escapeSeq.String())
	f.displayLines = 0
}

// render redraws every bar in place
func (f *ProgressFormatter) render() {
	if f.writer == nil {
		return
	}
	fmt.Fprint(f.writer, "\033[?25l") // Hide cursor
	f.clear()
	f.renderContent()
}

func (f *ProgressFormatter) renderContent() {
	for _, id := range f.order {
		fmt.Fprintln(f.writer, f.truncateLine(f.bars[id].bar.String()))
		f.displayLines++
	}
}

// truncateLine ensures a line doesn't exceed terminal width
func (f *ProgressFormatter) truncateLine(line string) string {
	runes := []rune(line)
	if f.termWidth > 0 && len(runes) > f.termWidth {
		return string(runes[:f.termWidth-1])
	}
	return line
}
