// Implements the MessageQueue used for control events and light-change
// notifications. Messages are produced once and drained once.

package sim

import (
	"fmt"
	"strings"
)

// MessageQueue is a FIFO of messages. It is not safe for concurrent use;
// the simulator is single-writer.
type MessageQueue[T any] struct {
	items []T
}

// NewMessageQueue creates an empty queue.
func NewMessageQueue[T any]() *MessageQueue[T] {
	return &MessageQueue[T]{items: make([]T, 0)}
}

// Push appends messages to the back of the queue.
func (q *MessageQueue[T]) Push(items ...T) {
	q.items = append(q.items, items...)
}

// Pop removes and returns the front message. ok is false if the queue is empty.
func (q *MessageQueue[T]) Pop() (item T, ok bool) {
	if len(q.items) == 0 {
		return item, false
	}
	item = q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Len returns the number of queued messages.
func (q *MessageQueue[T]) Len() int {
	return len(q.items)
}

// Drain returns every queued message in FIFO order and empties the queue.
func (q *MessageQueue[T]) Drain() []T {
	out := q.items
	q.items = make([]T, 0, cap(out))
	return out
}

func (q *MessageQueue[T]) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range q.items {
		sb.WriteString(fmt.Sprint(val))
		if i < len(q.items)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
