package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusFanOut(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	first, unsubscribeFirst := bus.Subscribe()
	second, unsubscribeSecond := bus.Subscribe()
	defer unsubscribeSecond()

	bus.Publish(New(TypeSessionCleared, "key-1", nil))

	got := <-first
	assert.Equal(t, TypeSessionCleared, got.Type)
	assert.Equal(t, "key-1", got.SessionKey)
	assert.NotEmpty(t, got.ID)
	assert.NotEmpty(t, got.Timestamp)
	assert.Equal(t, got.ID, (<-second).ID)

	unsubscribeFirst()
	_, open := <-first
	assert.False(t, open)
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	bus.bufferSize = 1
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	bus.Publish(New(TypeSessionUserSet, "k", nil))
	bus.Publish(New(TypeSessionCleared, "k", nil))

	require.Len(t, ch, 1)
	assert.Equal(t, TypeSessionUserSet, (<-ch).Type)
}

func TestNilBusPublishIsNoop(t *testing.T) {
	t.Parallel()

	var bus *InMemoryBus
	assert.NotPanics(t, func() { bus.Publish(New(TypeSessionCleared, "k", nil)) })
}
