package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedBusPublishSubscribe(t *testing.T) {
	bus := NewTyped[string]()
	ch := bus.Subscribe()
	bus.Publish("hello")
	assert.Equal(t, "hello", <-ch)
	bus.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestTypedBusKeepsLatest(t *testing.T) {
	bus := NewTypedBuffered[int](2)
	ch := bus.Subscribe()
	for i := 1; i <= 5; i++ {
		bus.Publish(i)
	}
	assert.Equal(t, 4, <-ch)
	assert.Equal(t, 5, <-ch)
	assert.Len(t, ch, 0)
}

func TestTypedBusClose(t *testing.T) {
	bus := NewTyped[int]()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	_, ok := <-ch1
	assert.False(t, ok)
	_, ok = <-ch2
	assert.False(t, ok)

	bus.Publish(1)
	_, ok = <-bus.Subscribe()
	assert.False(t, ok, "subscribing after close yields a closed channel")
}

func TestTypedBusUnsubscribeAfterClose(t *testing.T) {
	bus := NewTyped[float64]()
	ch := bus.Subscribe()
	bus.Close()
	assert.NotPanics(t, func() { bus.Unsubscribe(ch) })
}
