package service

import "errors"

// Registry errors.
var (
	// ErrEmptyName indicates a registration without a name.
	ErrEmptyName = errors.New("service name cannot be empty")

	// ErrNilService indicates a registration without a value.
	ErrNilService = errors.New("service cannot be nil")

	// ErrServiceExists indicates a duplicate registration.
	ErrServiceExists = errors.New("service already registered")

	// ErrServiceNotFound indicates a lookup or removal of an unknown name.
	ErrServiceNotFound = errors.New("service not found")
)
