package output

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/sdejongh/bulkops/pkg/models"
)

// Formatter defines the interface for output formatting
// Implementations include human-readable, JSON and progress bar formatters
type Formatter interface {
	// Start initializes the formatter with its output
	Start(writer io.Writer) error

	// Update reports a task state transition, including progress ticks
	Update(state models.TaskState) error

	// NotFound reports a cancel request for an unknown task
	NotFound(nf models.TaskNotFound) error

	// Complete displays the summary of a finished task
	Complete(report *models.TaskReport) error

	// Error reports an error outside of any task
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// New returns the formatter for format. Progress bars are only used when
// progress is requested and writer is a terminal.
func New(format string, progress bool, writer io.Writer) (Formatter, error) {
	switch format {
	case "json":
		return NewJSONFormatter(), nil
	case "human", "":
		if progress && IsTerminal(writer) {
			return NewProgressFormatter(), nil
		}
		return NewHumanFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// IsTerminal reports whether writer is a terminal
func IsTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// terminalWidth returns the width of writer, or fallback when unknown
func terminalWidth(writer io.Writer, fallback int) int {
	if file, ok := writer.(*os.File); ok {
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return fallback
}
