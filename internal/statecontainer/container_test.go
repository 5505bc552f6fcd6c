package statecontainer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type counter struct{ n int }

func reduce(s *counter, delta int) *counter {
	if delta == 0 {
		return s
	}
	return &counter{n: s.n + delta}
}

func TestDispatch_NotifiesOnChange(t *testing.T) {
	c := New(&counter{}, reduce)

	var calls []int
	c.Subscribe(func(prev, next *counter, a int) {
		calls = append(calls, next.n)
	})

	c.Dispatch(2)
	c.Dispatch(0) // no-op
	c.Dispatch(3)

	assert.Equal(t, []int{2, 5}, calls)
	assert.Equal(t, 5, c.GetState().n)
}

func TestDispatch_NoOpKeepsState(t *testing.T) {
	initial := &counter{n: 1}
	c := New(initial, reduce)
	got := c.Dispatch(0)
	assert.Same(t, initial, got)
	assert.Same(t, initial, c.GetState())
}

func TestUnsubscribe(t *testing.T) {
	c := New(&counter{}, reduce)
	calls := 0
	unsub := c.Subscribe(func(_, _ *counter, _ int) { calls++ })

	c.Dispatch(1)
	unsub()
	unsub()
	c.Dispatch(1)

	assert.Equal(t, 1, calls)
}

func TestSubscribe_Order(t *testing.T) {
	c := New(&counter{}, reduce)
	var order []string
	c.Subscribe(func(_, _ *counter, _ int) { order = append(order, "a") })
	unsub := c.Subscribe(func(_, _ *counter, _ int) { order = append(order, "b") })
	c.Subscribe(func(_, _ *counter, _ int) { order = append(order, "c") })
	unsub()

	c.Dispatch(1)
	assert.Equal(t, []string{"a", "c"}, order)
}

func TestListenerMayDispatch(t *testing.T) {
	c := New(&counter{}, reduce)
	c.Subscribe(func(_, next *counter, a int) {
		if next.n < 3 {
			c.Dispatch(1)
		}
	})
	c.Dispatch(1)
	assert.Equal(t, 3, c.GetState().n)
}

func TestConcurrentDispatch(t *testing.T) {
	c := New(&counter{}, reduce)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Dispatch(1)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, c.GetState().n)
}

func TestReplaceIf(t *testing.T) {
	c := New(&counter{n: 1}, reduce)
	gotAction := -1
	c.Subscribe(func(_, _ *counter, a int) { gotAction = a })
	odd := func(s *counter) bool { return s.n%2 == 1 }

	assert.True(t, c.ReplaceIf(odd, &counter{n: 2}))
	assert.Equal(t, 0, gotAction)
	assert.False(t, c.ReplaceIf(odd, &counter{n: 3}))
	assert.Equal(t, 2, c.GetState().n)
}
