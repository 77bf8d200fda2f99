package engine

import "errors"

var (
	ErrOutOfBounds       = errors.New("coordinates out of bounds")
	ErrNotFound          = errors.New("not found")
	ErrInventoryFull     = errors.New("inventory full")
	ErrBlocked           = errors.New("movement blocked")
	ErrInvalidDirection  = errors.New("invalid direction")
	ErrInvalidHackTarget = errors.New("attribute is not hackable")
	ErrUnknownAttribute  = errors.New("unknown attribute")
	ErrInvalidValue      = errors.New("invalid value")
	ErrUnknownKind       = errors.New("unknown entity kind")
	ErrConsoleDisabled   = errors.New("console is disabled")
	ErrLevelNotFound     = errors.New("level not found")
	ErrInvalidLevel      = errors.New("invalid level")
)
