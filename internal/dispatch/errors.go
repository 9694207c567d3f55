package dispatch

import "errors"

// Domain errors for the dispatch package.
var (
	// ErrUnknownDevice is returned when a device id has no dispatcher.
	ErrUnknownDevice = errors.New("dispatch: unknown device")

	// ErrDuplicateDevice is returned when registering a device id twice.
	ErrDuplicateDevice = errors.New("dispatch: duplicate device")

	// ErrClosed is returned when submitting to a closed dispatcher.
	ErrClosed = errors.New("dispatch: closed")

	// ErrResponseTimeout is reported when a pending request never completes.
	ErrResponseTimeout = errors.New("dispatch: response timeout")

	// ErrNotQueued is returned when withdrawing a command that is not queued.
	ErrNotQueued = errors.New("dispatch: command not queued")

	// ErrInvalidOptions is returned by New for incomplete options.
	ErrInvalidOptions = errors.New("dispatch: invalid options")
)
