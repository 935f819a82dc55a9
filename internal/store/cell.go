package store

import (
	"sync"
)

// Cell holds a single observable value. Subscribers are called synchronously
// on every Set, in subscription order, and once with the current value when
// they subscribe.
type Cell[T any] struct {
	mu          sync.RWMutex
	value       T
	nextID      int
	subscribers map[int]func(T)
	order       []int
}

func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{
		value:       initial,
		subscribers: make(map[int]func(T)),
	}
}

func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

func (c *Cell[T]) Set(value T) {
	c.mu.Lock()
	c.value = value
	subs := c.snapshot()
	c.mu.Unlock()

	for _, fn := range subs {
		fn(value)
	}
}

// Subscribe registers fn and returns a func removing it.
func (c *Cell[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subscribers[id] = fn
	c.order = append(c.order, id)
	value := c.value
	c.mu.Unlock()

	fn(value)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subscribers, id)
			for i, subID := range c.order {
				if subID == id {
					c.order = append(c.order[:i], c.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (c *Cell[T]) SubscribersCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscribers)
}

// snapshot must be called with the lock held.
func (c *Cell[T]) snapshot() []func(T) {
	subs := make([]func(T), 0, len(c.order))
	for _, id := range c.order {
		subs = append(subs, c.subscribers[id])
	}
	return subs
}
