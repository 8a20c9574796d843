// Package slots implements the cell-locked slot vector that backs a dense
// column: a growable vector of optional values, each cell independently
// lockable, with a free-index set for empty-slot reuse.
package slots

import "sync"

// cell wraps one slot's payload behind its own reader/writer lock, so a
// reader touching slot i never contends with a writer touching slot j.
type cell[V any] struct {
	mu      sync.RWMutex
	value   V
	present bool
}

// Slots is a slot-allocated vector of cells plus a free-index set. It
// synchronizes its own structural state (growth, empty-set membership)
// independently of whatever lock a caller (e.g. a column) holds, which is
// what lets Create reuse a free slot while the caller holds only a shared
// or upgradable lock of its own (see internal/column).
type Slots[V any] struct {
	structMu sync.Mutex
	data     []*cell[V]
	empty    *emptySet
}

// New returns an empty Slots with no pre-allocated capacity.
func New[V any]() *Slots[V] {
	return &Slots[V]{empty: newEmptySet()}
}

// WithCapacity returns a Slots pre-allocated with n empty cells.
func WithCapacity[V any](n int) *Slots[V] {
	s := New[V]()
	if n > 0 {
		s.Allocate(n)
	}
	return s
}

// Allocate grows the slot vector by n empty cells and returns the new
// length. Safe for concurrent use.
func (s *Slots[V]) Allocate(n int) int {
	s.structMu.Lock()
	defer s.structMu.Unlock()
	return s.allocateLocked(n)
}

func (s *Slots[V]) allocateLocked(n int) int {
	for i := 0; i < n; i++ {
		s.data = append(s.data, &cell[V]{})
		s.empty.push(uint32(len(s.data) - 1))
	}
	return len(s.data)
}

// Create stores value in a reused free slot if one exists, else grows the
// vector by one. Returns the slot index.
//
// Preconditions: the caller holds the owning column's lock in at least
// shared mode (see package column). Slots arbitrates its own structural
// state internally, so no further synchronization is required here.
func (s *Slots[V]) Create(value V) uint32 {
	s.structMu.Lock()
	idx, ok := s.empty.popMin()
	if !ok {
		s.allocateLocked(1)
		idx, _ = s.empty.popMin()
	}
	c := s.data[idx]
	s.structMu.Unlock()

	c.mu.Lock()
	c.value = value
	c.present = true
	c.mu.Unlock()
	return idx
}

// Len returns the current number of slots, occupied or not.
func (s *Slots[V]) Len() int {
	s.structMu.Lock()
	defer s.structMu.Unlock()
	return len(s.data)
}

// EmptyLen returns the number of free slots.
func (s *Slots[V]) EmptyLen() int {
	s.structMu.Lock()
	defer s.structMu.Unlock()
	return s.empty.len()
}

func (s *Slots[V]) cellAt(i uint32) *cell[V] {
	s.structMu.Lock()
	c := s.data[i]
	s.structMu.Unlock()
	return c
}

// Read returns a copy of the value at index i.
//
// Unchecked: i must be inbound and the slot must be non-empty.
func (s *Slots[V]) Read(i uint32) V {
	c := s.cellAt(i)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Update swaps in value at index i and returns the prior value.
//
// Unchecked: i must be inbound and the slot must be non-empty.
func (s *Slots[V]) Update(i uint32, value V) V {
	c := s.cellAt(i)
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.value
	c.value = value
	return old
}

// ModifyWith runs f against the mutable value in place under the cell's
// exclusive lock.
//
// Unchecked: i must be inbound and the slot must be non-empty.
func (s *Slots[V]) ModifyWith(i uint32, f func(v *V)) {
	c := s.cellAt(i)
	c.mu.Lock()
	defer c.mu.Unlock()
	f(&c.value)
}

// IsPresent reports whether the slot at index i currently holds a value.
// Used by invariant checks in tests; unchecked like the rest of the API.
func (s *Slots[V]) IsPresent(i uint32) bool {
	c := s.cellAt(i)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.present
}

// Take removes and returns the value at index i, returning the slot to the
// free set.
//
// Unchecked: i must be inbound and the slot must be non-empty.
func (s *Slots[V]) Take(i uint32) V {
	c := s.cellAt(i)
	c.mu.Lock()
	old := c.value
	var zero V
	c.value = zero
	c.present = false
	c.mu.Unlock()

	s.structMu.Lock()
	s.empty.push(i)
	s.structMu.Unlock()
	return old
}
