package models

import (
	"encoding/json"
	"fmt"
	"path/filepath"
)

// TaskID identifies an active task. Ids are reused once a task has finished.
type TaskID int

// StateKind is the stage of a task's lifecycle
type StateKind string

const (
	// StatePending means the task is waiting for a free worker
	StatePending StateKind = "pending"
	// StateRunning means the task is processing its roots
	StateRunning StateKind = "running"
	// StateSuccess means the task finished without failures
	StateSuccess StateKind = "success"
	// StateFailed means the task finished with at least one failure
	StateFailed StateKind = "failed"
	// StateCancelled means the task was stopped before finishing
	StateCancelled StateKind = "cancelled"
)

// IsTerminal reports whether no further transition is possible
func (k StateKind) IsTerminal() bool {
	return k == StateSuccess || k == StateFailed || k == StateCancelled
}

// ExitCode returns the process exit code matching a terminal state
func (k StateKind) ExitCode() int {
	switch k {
	case StateSuccess:
		return 0
	case StateFailed:
		return 1
	case StateCancelled:
		return 3
	default:
		return 2
	}
}

// Target holds the display labels of a task.
// Labels are derived from the first root only, even when roots live in
// different directories.
type Target struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// NewTarget derives the labels for a request
func NewTarget(kind OperationKind, roots []string, destination string) Target {
	var source string
	if len(roots) > 0 {
		source = filepath.Base(filepath.Dir(filepath.Clean(roots[0])))
	}
	if kind.IsPaste() {
		return Target{Source: source, Destination: filepath.Base(filepath.Clean(destination))}
	}
	return Target{Source: source, Destination: source}
}

// Failure records a path that could not be processed
type Failure struct {
	Path string
	Err  error
}

func (f Failure) String() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

// MarshalJSON renders the error as its message
func (f Failure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		Path  string `json:"path"`
		Error string `json:"error"`
	}{f.Path, msg})
}

// TaskNotFound is published when a cancel request names an unknown task
type TaskNotFound struct {
	Task TaskID `json:"task"`
}

// TaskState is an immutable snapshot of a task. Values are replaced, never
// mutated; every transition returns a new TaskState.
//
// Items and Bytes are zero while pending and hold the last known progress
// once running or finished. Failures is only set on Failed and Cancelled.
type TaskState struct {
	Kind      StateKind     `json:"state"`
	Task      TaskID        `json:"task"`
	Operation OperationKind `json:"operation"`
	Target    Target        `json:"target"`
	Time      Time          `json:"-"`
	Items     Progress      `json:"items"`
	Bytes     Progress      `json:"bytes"`
	Failures  []Failure     `json:"failures,omitempty"`
}

// NewPendingState creates the initial state of a task
func NewPendingState(task TaskID, op OperationKind, target Target, now Time) TaskState {
	return TaskState{
		Kind:      StatePending,
		Task:      task,
		Operation: op,
		Target:    target,
		Time:      now,
	}
}

// IsFinished reports whether the state is terminal
func (s TaskState) IsFinished() bool {
	return s.Kind.IsTerminal()
}

// Running moves a pending task to running or refreshes the progress of a
// running one. A running task keeps the time it started running.
func (s TaskState) Running(now Time, items, bytes Progress) (TaskState, error) {
	next := s
	switch s.Kind {
	case StatePending:
		next.Time = now
	case StateRunning:
	default:
		return s, s.illegal(StateRunning)
	}
	next.Kind = StateRunning
	next.Items = items
	next.Bytes = bytes
	return next, nil
}

// Succeed finishes a running task without failures
func (s TaskState) Succeed(now Time) (TaskState, error) {
	if s.Kind != StateRunning {
		return s, s.illegal(StateSuccess)
	}
	next := s
	next.Kind = StateSuccess
	next.Time = now
	next.Failures = nil
	return next, nil
}

// Fail finishes a running task with the given failures, which must not be
// empty
func (s TaskState) Fail(now Time, failures []Failure) (TaskState, error) {
	if s.Kind != StateRunning {
		return s, s.illegal(StateFailed)
	}
	if len(failures) == 0 {
		return s, &ValidationError{Field: "failures", Message: "a failed task needs at least one failure"}
	}
	next := s
	next.Kind = StateFailed
	next.Time = now
	next.Failures = append([]Failure(nil), failures...)
	return next, nil
}

// Finish picks Succeed or Fail depending on failures
func (s TaskState) Finish(now Time, failures []Failure) (TaskState, error) {
	if len(failures) == 0 {
		return s.Succeed(now)
	}
	return s.Fail(now, failures)
}

// Cancel finishes a pending or running task early, keeping failures
// gathered so far
func (s TaskState) Cancel(now Time, failures []Failure) (TaskState, error) {
	if s.Kind.IsTerminal() {
		return s, s.illegal(StateCancelled)
	}
	next := s
	next.Kind = StateCancelled
	next.Time = now
	if len(failures) > 0 {
		next.Failures = append([]Failure(nil), failures...)
	} else {
		next.Failures = nil
	}
	return next, nil
}

func (s TaskState) illegal(to StateKind) error {
	return fmt.Errorf("task %d: %s -> %s: %w", s.Task, s.Kind, to, ErrIllegalTransition)
}
