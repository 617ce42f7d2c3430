package refcount

import (
	"cmp"
	"slices"
)

// Counters holds an integer delta per key. Zero entries are dropped.
type Counters[K comparable] struct {
	m map[K]int64
}

// NewCounters creates an empty set of counters.
func NewCounters[K comparable]() *Counters[K] {
	return &Counters[K]{m: make(map[K]int64)}
}

// Add adds n to k and returns the new count.
func (c *Counters[K]) Add(k K, n int64) int64 {
	v := c.m[k] + n
	if v == 0 {
		delete(c.m, k)
	} else {
		c.m[k] = v
	}
	return v
}

// Count returns the count for k.
func (c *Counters[K]) Count(k K) int64 { return c.m[k] }

// Reset drops k.
func (c *Counters[K]) Reset(k K) { delete(c.m, k) }

// ResetAll drops every key.
func (c *Counters[K]) ResetAll() { clear(c.m) }

// Merge adds every count in o.
func (c *Counters[K]) Merge(o *Counters[K]) {
	for k, n := range o.m {
		c.Add(k, n)
	}
}

// Len returns the number of non-zero keys.
func (c *Counters[K]) Len() int { return len(c.m) }

// IsEmpty reports whether every count is zero.
func (c *Counters[K]) IsEmpty() bool { return len(c.m) == 0 }

// SortedKeys returns the non-zero keys ordered by compare.
func (c *Counters[K]) SortedKeys(compare func(a, b K) int) []K {
	keys := make([]K, 0, len(c.m))
	for k := range c.m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compare)
	return keys
}

// OrderedKeys sorts keys of an ordered type.
func OrderedKeys[K cmp.Ordered](c *Counters[K]) []K {
	return c.SortedKeys(cmp.Compare[K])
}
