package models

import "errors"

var (
	// ErrTaskNotFound is returned when a task id does not match any active task
	ErrTaskNotFound = errors.New("task not found")

	// ErrIllegalTransition is returned when a task state change is not allowed
	ErrIllegalTransition = errors.New("illegal task state transition")

	// ErrPasteIntoSelf is recorded when the destination lies inside a copied or moved root
	ErrPasteIntoSelf = errors.New("cannot paste a directory into itself")

	// ErrNotFileOrDirectory is recorded for devices, fifos and sockets during copy
	ErrNotFileOrDirectory = errors.New("not a file or directory")
)
