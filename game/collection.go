package game

import "math/rand"

// Collection is an ordered set indexed by id. Items keep insertion order;
// removal preserves the relative order of the remainder. Duplicate ids
// are rejected.
type Collection[K comparable, T any] struct {
	ids   []K
	items []T
	index map[K]int
	keyOf func(T) K
}

// NewCollection builds an empty collection keyed by keyOf.
func NewCollection[K comparable, T any](keyOf func(T) K) *Collection[K, T] {
	return &Collection[K, T]{
		index: make(map[K]int),
		keyOf: keyOf,
	}
}

func (c *Collection[K, T]) Count() int    { return len(c.items) }
func (c *Collection[K, T]) IsEmpty() bool { return len(c.items) == 0 }

// Add appends item unless its id is already present.
func (c *Collection[K, T]) Add(item T) bool {
	id := c.keyOf(item)
	if _, ok := c.index[id]; ok {
		return false
	}
	c.index[id] = len(c.items)
	c.ids = append(c.ids, id)
	c.items = append(c.items, item)
	return true
}

// Remove deletes item by its id.
func (c *Collection[K, T]) Remove(item T) bool {
	return c.RemoveByID(c.keyOf(item))
}

// RemoveByID deletes the item with the given id.
func (c *Collection[K, T]) RemoveByID(id K) bool {
	i, ok := c.index[id]
	if !ok {
		return false
	}
	c.ids = append(c.ids[:i], c.ids[i+1:]...)
	c.items = append(c.items[:i], c.items[i+1:]...)
	delete(c.index, id)
	for j := i; j < len(c.ids); j++ {
		c.index[c.ids[j]] = j
	}
	return true
}

// GetByID returns the item with the given id.
func (c *Collection[K, T]) GetByID(id K) (T, bool) {
	var zero T
	i, ok := c.index[id]
	if !ok {
		return zero, false
	}
	return c.items[i], true
}

// Exists reports whether the item's id is present.
func (c *Collection[K, T]) Exists(item T) bool {
	_, ok := c.index[c.keyOf(item)]
	return ok
}

// Items returns the backing slice in insertion order. Callers must not
// mutate the collection while ranging over it.
func (c *Collection[K, T]) Items() []T { return c.items }

// Filter returns the items satisfying pred, in order.
func (c *Collection[K, T]) Filter(pred func(T) bool) []T {
	var out []T
	for _, item := range c.items {
		if pred(item) {
			out = append(out, item)
		}
	}
	return out
}

// Match returns the first item satisfying pred.
func (c *Collection[K, T]) Match(pred func(T) bool) (T, bool) {
	for _, item := range c.items {
		if pred(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// First returns the oldest item.
func (c *Collection[K, T]) First() (T, bool) {
	var zero T
	if len(c.items) == 0 {
		return zero, false
	}
	return c.items[0], true
}

// Random returns a uniformly random item using rng.
func (c *Collection[K, T]) Random(rng *rand.Rand) (T, bool) {
	var zero T
	if len(c.items) == 0 {
		return zero, false
	}
	return c.items[rng.Intn(len(c.items))], true
}

// Clear removes every item.
func (c *Collection[K, T]) Clear() {
	c.ids = c.ids[:0]
	c.items = c.items[:0]
	c.index = make(map[K]int)
}
