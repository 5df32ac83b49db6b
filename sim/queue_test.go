package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageQueue_Pop_FIFO(t *testing.T) {
	// GIVEN a queue with [A, B]
	q := NewMessageQueue[string]()
	q.Push("A", "B")

	// WHEN Pop is called three times
	first, ok1 := q.Pop()
	second, ok2 := q.Pop()
	_, ok3 := q.Pop()

	// THEN messages come out in insertion order, then the queue reports empty
	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.False(t, ok3)
	assert.Equal(t, "A", first)
	assert.Equal(t, "B", second)
	assert.Equal(t, 0, q.Len())
}

func TestMessageQueue_Drain_EmptiesQueue(t *testing.T) {
	q := NewMessageQueue[LightChanged]()
	q.Push(LightChanged{Tick: 0, Color: Red})
	q.Push(LightChanged{Tick: 5, Color: Green})

	got := q.Drain()

	assert.Equal(t, []LightChanged{{0, Red}, {5, Green}}, got)
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Drain())

	// messages pushed after a drain do not alias the drained slice
	q.Push(LightChanged{Tick: 9, Color: Yellow})
	assert.Equal(t, Green, got[1].Color)
}

func TestMessageQueue_String(t *testing.T) {
	q := NewMessageQueue[LightChanged]()
	assert.Equal(t, "[]", q.String())

	q.Push(LightChanged{Tick: 0, Color: Red}, LightChanged{Tick: 3, Color: Green})
	assert.Equal(t, "[red@0 green@3]", q.String())
}
