package models

import (
	"time"
)

// TaskReport summarizes a finished task
type TaskReport struct {
	// Task details
	Task      TaskID        `json:"task"`
	RunID     string        `json:"run_id,omitempty"`
	Operation OperationKind `json:"operation"`
	Target    Target        `json:"target"`
	Roots     []string      `json:"roots,omitempty"`

	// Timing
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration_ns"`

	// Statistics
	Items int64 `json:"items"`
	Bytes int64 `json:"bytes"`

	// Failures encountered
	Failures []Failure `json:"failures,omitempty"`

	// Overall status
	Status StateKind `json:"status"`
}

// NewTaskReport builds a report from the first and the terminal state of a task
func NewTaskReport(first, last TaskState) *TaskReport {
	return &TaskReport{
		Task:      last.Task,
		Operation: last.Operation,
		Target:    last.Target,
		StartTime: first.Time.Wall,
		EndTime:   last.Time.Wall,
		Duration:  first.Time.Since(last.Time),
		Items:     last.Items.Processed(),
		Bytes:     last.Bytes.Processed(),
		Failures:  last.Failures,
		Status:    last.Kind,
	}
}

// ExitCode returns the appropriate exit code for the report status
func (r *TaskReport) ExitCode() int {
	return r.Status.ExitCode()
}
