package capability

import "errors"

// Registry errors.
var (
	// ErrUnknownCapability is returned when no handler is registered under
	// the requested name.
	ErrUnknownCapability = errors.New("unknown capability")

	// ErrNameEmpty is returned when a registration has no name.
	ErrNameEmpty = errors.New("capability name cannot be empty")

	// ErrHandlerNil is returned when a registration has no handler.
	ErrHandlerNil = errors.New("capability handler cannot be nil")

	// ErrAlreadyRegistered is returned when registering a duplicate name.
	ErrAlreadyRegistered = errors.New("capability already registered")
)
