package queue

import (
	"container/heap"
	"fmt"
	"sort"
)

// entry is one queued value with its ordering key.
type entry[T any] struct {
	value    T
	priority int
	seq      uint64
}

// entries implements heap.Interface over (priority, seq).
type entries[T any] []entry[T]

func (e entries[T]) Len() int { return len(e) }

func (e entries[T]) Less(i, j int) bool {
	if e[i].priority != e[j].priority {
		return e[i].priority < e[j].priority
	}
	return e[i].seq < e[j].seq
}

func (e entries[T]) Swap(i, j int) { e[i], e[j] = e[j], e[i] }

func (e *entries[T]) Push(x any) {
	*e = append(*e, x.(entry[T]))
}

func (e *entries[T]) Pop() any {
	old := *e
	n := len(old)
	last := old[n-1]
	var zero entry[T]
	old[n-1] = zero // drop the reference for the GC
	*e = old[:n-1]
	return last
}

// Queue is a fixed-capacity min-priority queue.
//
// The backing array is allocated once at construction.
type Queue[T any] struct {
	items    entries[T]
	capacity int
}

// New creates a queue that holds at most capacity values. A negative
// capacity is treated as zero.
func New[T any](capacity int) *Queue[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue[T]{
		items:    make(entries[T], 0, capacity),
		capacity: capacity,
	}
}

// Add inserts value with the given priority and sequence id.
//
// When the queue is full the value is dropped and Add returns false. This is
// not an error: callers that care check the result or Len().
func (q *Queue[T]) Add(value T, priority int, seq uint64) bool {
	if len(q.items) >= q.capacity {
		return false
	}
	heap.Push(&q.items, entry[T]{value: value, priority: priority, seq: seq})
	return true
}

// ExtractMin removes and returns the value with the smallest priority,
// breaking ties by the smallest sequence id.
func (q *Queue[T]) ExtractMin() (T, error) {
	if len(q.items) == 0 {
		var zero T
		return zero, ErrEmpty
	}
	e := heap.Pop(&q.items).(entry[T])
	return e.value, nil
}

// Peek returns the value ExtractMin would return without removing it.
func (q *Queue[T]) Peek() (T, error) {
	if len(q.items) == 0 {
		var zero T
		return zero, ErrEmpty
	}
	return q.items[0].value, nil
}

// RemoveAt removes the value stored at internal position index. Index 0 is
// always the current minimum. Positions are only meaningful immediately after
// a Values snapshot; any mutation may reorder them.
func (q *Queue[T]) RemoveAt(index int) (T, error) {
	if err := q.checkIndex(index); err != nil {
		var zero T
		return zero, err
	}
	e := heap.Remove(&q.items, index).(entry[T])
	return e.value, nil
}

// Modify replaces the value stored at index. Its priority and sequence id,
// and therefore its position, are unchanged.
func (q *Queue[T]) Modify(index int, value T) error {
	if err := q.checkIndex(index); err != nil {
		return err
	}
	q.items[index].value = value
	return nil
}

// Clear removes every value. Capacity is unchanged.
func (q *Queue[T]) Clear() {
	var zero entry[T]
	for i := range q.items {
		q.items[i] = zero
	}
	q.items = q.items[:0]
}

// Values returns a snapshot of the queued values in internal heap order.
// The order is not sorted; index i of the result matches position i for
// RemoveAt and Modify until the queue is next mutated.
func (q *Queue[T]) Values() []T {
	out := make([]T, len(q.items))
	for i, e := range q.items {
		out[i] = e.value
	}
	return out
}

// Len returns the number of queued values.
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Cap returns the fixed capacity.
func (q *Queue[T]) Cap() int {
	return q.capacity
}

// Find returns the position of the matching value that ExtractMin would
// reach first, that is the smallest (priority, seq) among matches.
func (q *Queue[T]) Find(match func(T) bool) (int, bool) {
	index := -1
	for i, e := range q.items {
		if !match(e.value) {
			continue
		}
		if index < 0 || q.items.Less(i, index) {
			index = i
		}
	}
	return index, index >= 0
}

// Ordered returns a snapshot of the queued values in extraction order.
func (q *Queue[T]) Ordered() []T {
	sorted := make(entries[T], len(q.items))
	copy(sorted, q.items)
	sort.Sort(sorted)

	out := make([]T, len(sorted))
	for i, e := range sorted {
		out[i] = e.value
	}
	return out
}

func (q *Queue[T]) checkIndex(index int) error {
	if index < 0 || index >= len(q.items) {
		return fmt.Errorf("%w: %d (len %d)", ErrInvalidIndex, index, len(q.items))
	}
	return nil
}

// Sequence hands out strictly increasing sequence ids for one queue. The
// zero value starts at 1.
type Sequence struct {
	last uint64
}

// Next returns the next id. Ids are never reused.
func (s *Sequence) Next() uint64 {
	s.last++
	return s.last
}
