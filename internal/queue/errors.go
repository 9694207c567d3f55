package queue

import "errors"

// Contract violations reported by Queue.
var (
	// ErrEmpty is returned when extracting or peeking an empty queue.
	ErrEmpty = errors.New("queue: empty")

	// ErrInvalidIndex is returned when an index is outside [0, Len()).
	ErrInvalidIndex = errors.New("queue: invalid index")
)
