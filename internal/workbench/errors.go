package workbench

import "errors"

// Common errors for workbench operations.
var (
	// ErrEmptyActivityID indicates an activity with no id.
	ErrEmptyActivityID = errors.New("activity id is empty")

	// ErrActivityExists indicates the activity id is already registered.
	ErrActivityExists = errors.New("activity already registered")

	// ErrActivityNotFound indicates the activity id is not registered.
	ErrActivityNotFound = errors.New("activity not found")

	// ErrActivityDisabled indicates a disabled activity cannot be activated.
	ErrActivityDisabled = errors.New("activity is disabled")

	// ErrNoPanelFactory indicates an activity has no panel factory.
	ErrNoPanelFactory = errors.New("no panel factory registered")

	// ErrNilPanel indicates a nil panel.
	ErrNilPanel = errors.New("panel is nil")

	// ErrEmptyPanelID indicates a panel with no id.
	ErrEmptyPanelID = errors.New("panel id is empty")

	// ErrPanelExists indicates the panel id is already registered.
	ErrPanelExists = errors.New("panel already registered")

	// ErrPanelNotFound indicates the panel id is not registered.
	ErrPanelNotFound = errors.New("panel not found")

	// ErrTabNotFound indicates the tab id is not open.
	ErrTabNotFound = errors.New("tab not found")
)
