package command

import "errors"

// Domain errors for the command package.
var (
	// ErrUnknownCommand is returned when a command name is not in the table.
	ErrUnknownCommand = errors.New("command: unknown command")

	// ErrDuplicateCommand is returned when a table is built with a repeated name.
	ErrDuplicateCommand = errors.New("command: duplicate name")

	// ErrInvalidCommand is returned when a descriptor fails validation.
	ErrInvalidCommand = errors.New("command: invalid")

	// ErrInvalidPriority is returned when a priority value or name is not recognised.
	ErrInvalidPriority = errors.New("command: invalid priority")
)
