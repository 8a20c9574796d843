package slots

import "container/heap"

// emptySet is a min-heap of free slot indices, smallest first. Reuse always
// prefers the lowest index for cache locality, and makes "no new slot was
// allocated" deterministic and testable.
type emptySet struct {
	h indexHeap
}

func newEmptySet() *emptySet {
	return &emptySet{}
}

// push returns i to the free pool.
func (s *emptySet) push(i uint32) {
	heap.Push(&s.h, i)
}

// popMin removes and returns the smallest free index. ok is false if empty.
func (s *emptySet) popMin() (i uint32, ok bool) {
	if len(s.h) == 0 {
		return 0, false
	}
	return heap.Pop(&s.h).(uint32), true
}

// len reports the number of free indices.
func (s *emptySet) len() int {
	return len(s.h)
}

// indexHeap is a min-heap of uint32 slot indices.
type indexHeap []uint32

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x any)        { *h = append(*h, x.(uint32)) }
func (h *indexHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}
