package command

import "errors"

var (
	// ErrNilCommand is returned when registering a nil command.
	ErrNilCommand = errors.New("command cannot be nil")

	// ErrEmptyID is returned when registering a command without an ID.
	ErrEmptyID = errors.New("command ID cannot be empty")

	// ErrEmptyTitle is returned when registering a command without a title.
	ErrEmptyTitle = errors.New("command title cannot be empty")

	// ErrNoHandler is returned when executing a command that has no handler.
	ErrNoHandler = errors.New("command has no handler")

	// ErrNotFound is returned when executing an unknown command.
	ErrNotFound = errors.New("command not found")
)
