// Package queue provides the fixed-capacity priority queue that holds AV
// commands waiting for the transport.
//
// Entries are ordered by (priority, sequence id): the smallest priority is
// extracted first and equal priorities leave in arrival order. Sequence ids
// are assigned by the caller, normally from a Sequence owned alongside the
// queue, and must be strictly increasing for the lifetime of the queue.
//
// The queue never grows. Add on a full queue is silently ignored; the
// returned bool and Len() let the caller notice. Operations on an empty
// queue or an out-of-range index return ErrEmpty or ErrInvalidIndex and
// leave the queue untouched.
//
// # Thread Safety
//
// Queue is not safe for concurrent use. The dispatcher guards each queue
// with the same mutex that protects the device runtime state.
package queue
