// Package statecontainer holds reducer-driven state behind a
// GetState/Dispatch/Subscribe interface.
package statecontainer

import "sync"

// Reducer computes the next state. Returning the same value signals a no-op.
type Reducer[S comparable, A any] func(state S, action A) S

// Listener observes committed state transitions.
type Listener[S any, A any] func(prev, next S, action A)

// Container owns one state value. Dispatches are serialised; listeners run
// after the lock is released, in subscription order.
type Container[S comparable, A any] struct {
	mu        sync.Mutex
	state     S
	reduce    Reducer[S, A]
	listeners map[int]Listener[S, A]
	order     []int
	nextID    int
}

// New creates a container holding initial.
func New[S comparable, A any](initial S, reduce Reducer[S, A]) *Container[S, A] {
	return &Container[S, A]{
		state:     initial,
		reduce:    reduce,
		listeners: make(map[int]Listener[S, A]),
	}
}

// GetState returns the current state.
func (c *Container[S, A]) GetState() S {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dispatch applies action and returns the resulting state. Listeners are
// notified only when the reducer produced a different value.
func (c *Container[S, A]) Dispatch(action A) S {
	c.mu.Lock()
	prev := c.state
	next := c.reduce(prev, action)
	if next == prev {
		c.mu.Unlock()
		return prev
	}
	c.state = next
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	for _, l := range listeners {
		l(prev, next, action)
	}
	return next
}

// ReplaceIf swaps the state for next when cond holds for the current state,
// checked under the dispatch lock. It reports whether the swap happened.
func (c *Container[S, A]) ReplaceIf(cond func(current S) bool, next S) bool {
	c.mu.Lock()
	prev := c.state
	if !cond(prev) {
		c.mu.Unlock()
		return false
	}
	c.state = next
	if prev == next {
		c.mu.Unlock()
		return true
	}
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	var zero A
	for _, l := range listeners {
		l(prev, next, zero)
	}
	return true
}

// Subscribe registers l and returns a function that removes it. The
// returned function is safe to call more than once.
func (c *Container[S, A]) Subscribe(l Listener[S, A]) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.order = append(c.order, id)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.listeners, id)
			for i, v := range c.order {
				if v == id {
					c.order = append(c.order[:i], c.order[i+1:]...)
					break
				}
			}
		})
	}
}

// caller must hold c.mu
func (c *Container[S, A]) snapshotListeners() []Listener[S, A] {
	out := make([]Listener[S, A], 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.listeners[id])
	}
	return out
}
