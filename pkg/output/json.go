package output

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sdejongh/bulkops/pkg/models"
)

// JSONFormatter writes one JSON event per line for automation and scripting
type JSONFormatter struct {
	mu      sync.Mutex
	writer  io.Writer
	encoder *json.Encoder
}

// JSONEvent represents a single event in the JSON output stream
type JSONEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
}

// JSONStateData represents a task state transition
type JSONStateData struct {
	models.TaskState
	Since time.Time `json:"since"`
}

// JSONReportData represents the final report of a task
type JSONReportData struct {
	Task       models.TaskID        `json:"task"`
	RunID      string               `json:"run_id,omitempty"`
	Operation  models.OperationKind `json:"operation"`
	Target     models.Target        `json:"target"`
	Roots      []string             `json:"roots,omitempty"`
	Status     models.StateKind     `json:"status"`
	Duration   string               `json:"duration"`
	DurationMs int64                `json:"duration_ms"`
	Items      int64                `json:"items"`
	Bytes      int64                `json:"bytes"`
	Failures   []models.Failure     `json:"failures,omitempty"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Start initializes the formatter
func (f *JSONFormatter) Start(writer io.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.encoder = json.NewEncoder(writer)
	return nil
}

func (f *JSONFormatter) emit(kind string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.encoder == nil {
		return nil
	}
	return f.encoder.Encode(JSONEvent{Timestamp: time.Now(), Type: kind, Data: data})
}

// Update writes every state, progress ticks included
func (f *JSONFormatter) Update(state models.TaskState) error {
	return f.emit("state", JSONStateData{TaskState: state, Since: state.Time.Wall})
}

// NotFound writes a not_found event
func (f *JSONFormatter) NotFound(nf models.TaskNotFound) error {
	return f.emit("not_found", nf)
}

// Complete writes the report of a finished task
func (f *JSONFormatter) Complete(report *models.TaskReport) error {
	return f.emit("report", JSONReportData{
		Task:       report.Task,
		RunID:      report.RunID,
		Operation:  report.Operation,
		Target:     report.Target,
		Roots:      report.Roots,
		Status:     report.Status,
		Duration:   report.Duration.Round(time.Millisecond).String(),
		DurationMs: report.Duration.Milliseconds(),
		Items:      report.Items,
		Bytes:      report.Bytes,
		Failures:   report.Failures,
	})
}

// Error writes an error event
func (f *JSONFormatter) Error(err error) error {
	return f.emit("error", map[string]string{"error": err.Error()})
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}
