package command

import "fmt"

// Handler is a function that executes a command.
type Handler func(args map[string]any) error

// Command represents a named operation that can be invoked from the
// command palette, a keybinding, or a plugin.
type Command struct {
	// ID is the unique command identifier (e.g., "explorer.refresh").
	ID string

	// Title is the display name shown in the palette.
	Title string

	// Description provides additional context about the command.
	Description string

	// Category groups related commands (e.g., "File", "View", "Plugins").
	Category string

	// Keybinding shows the keyboard shortcut (for display only).
	Keybinding string

	// Handler executes the command.
	Handler Handler

	// Source indicates where the command was registered.
	// e.g., "core", "plugin:wordcount", "user"
	Source string
}

// Execute runs the command with the given arguments.
// The args map is cloned before dispatch, so the caller's map is not modified.
func (c *Command) Execute(args map[string]any) error {
	if c.Handler == nil {
		return fmt.Errorf("command %q: %w", c.ID, ErrNoHandler)
	}

	execArgs := make(map[string]any, len(args))
	for k, v := range args {
		execArgs[k] = v
	}

	return c.Handler(execArgs)
}
