package api

import "errors"

// Common errors for API module management.
var (
	// ErrInvalidModule indicates a module with no name or factory.
	ErrInvalidModule = errors.New("invalid module")

	// ErrModuleExists indicates the module name is already registered.
	ErrModuleExists = errors.New("module already registered")

	// ErrNilState indicates injection into a nil Lua state.
	ErrNilState = errors.New("lua state is nil")
)
