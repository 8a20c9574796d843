package column

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetCreatesThenUpdates(t *testing.T) {
	c := New[string, int, int](AddMerge[int]())

	_, hadPrior := c.Set("a", 1)
	assert.False(t, hadPrior)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	prior, hadPrior := c.Set("a", 2)
	assert.True(t, hadPrior)
	assert.Equal(t, 1, prior)

	v, _ = c.Get("a")
	assert.Equal(t, 2, v)
}

func TestNewPreallocatesDefaultCapacity(t *testing.T) {
	c := New[string, int, int](AddMerge[int]())
	assert.Equal(t, 4096, c.SlotCount())

	c.Set("a", 1)
	assert.Equal(t, 4096, c.SlotCount(), "create into preallocated slots must not grow the vector")
}

func TestRemoveReleasesSlotForReuse(t *testing.T) {
	c := New[string, int, int](AddMerge[int](), WithCapacity[string, int, int](0))
	c.Set("a", 1)
	c.Set("b", 2)

	val, ok := c.Remove("a")
	require.True(t, ok)
	assert.Equal(t, 1, val)
	assert.False(t, c.Contains("a"))
	assert.Equal(t, 1, c.Len())

	c.Set("c", 3)
	assert.Equal(t, 2, c.SlotCount(), "c should reuse a's freed slot")
}

func TestMergeAppliesDeltaInPlace(t *testing.T) {
	c := New[string, int, int](AddMerge[int]())
	c.Set("a", 10)
	c.Merge("a", 5)

	v, _ := c.Get("a")
	assert.Equal(t, 15, v)
}

func TestMergeOnAbsentKeyIsNoop(t *testing.T) {
	c := New[string, int, int](AddMerge[int]())
	c.Merge("ghost", 5)
	assert.False(t, c.Contains("ghost"))
}

func TestMergeCanDeleteViaRule(t *testing.T) {
	dropBelowZero := func(v *int, d int) bool {
		*v += d
		return *v < 0
	}
	c := New[string, int, int](dropBelowZero)

	c.Set("a", 5)
	c.Merge("a", -3)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	c.Merge("a", -10)
	_, ok = c.Get("a")
	assert.False(t, ok, "merge requesting deletion must remove the key")
}

func TestTickAppliesDeltaImmediately(t *testing.T) {
	c := New[string, int, int](AddMerge[int]())
	c.Set("a", 1)
	c.Set("b", 2)

	c.Tick(func(k string, v int) (int, bool) {
		return 1, true
	})

	a, _ := c.Get("a")
	b, _ := c.Get("b")
	assert.Equal(t, 2, a)
	assert.Equal(t, 3, b)
}

func TestLoadReplaysLoggedOps(t *testing.T) {
	src := New[string, int, int](AddMerge[int]())
	src.Set("a", 1)
	src.Set("a", 2)
	src.Merge("a", 3)
	src.Set("b", 10)
	src.Remove("b")

	ops := []LoggedOp[string, int, int]{
		{Op: OpCreate, Key: "a", Value: 1},
		{Op: OpUpdate, Key: "a", Value: 2},
		{Op: OpMerge, Key: "a", Delta: 3},
		{Op: OpCreate, Key: "b", Value: 10},
		{Op: OpDelete, Key: "b"},
	}

	dst := New[string, int, int](AddMerge[int]())
	dst.Load(ops)

	v, ok := dst.Get("a")
	require.True(t, ok)
	assert.Equal(t, 5, v)
	assert.False(t, dst.Contains("b"))
}

type recordingSink struct {
	mu  sync.Mutex
	ops []LoggedOp[string, int, int]
}

func (s *recordingSink) Append(op Op, key string, value int, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, LoggedOp[string, int, int]{Op: op, Key: key, Value: value, Delta: delta})
}

func TestLogSinkReceivesOneAtomPerMutation(t *testing.T) {
	sink := &recordingSink{}
	c := New[string, int, int](AddMerge[int](), WithLog[string, int, int](sink))

	c.Set("a", 1)
	c.Merge("a", 2)
	c.Remove("a")

	require.Len(t, sink.ops, 3)
	assert.Equal(t, OpCreate, sink.ops[0].Op)
	assert.Equal(t, OpMerge, sink.ops[1].Op)
	assert.Equal(t, OpDelete, sink.ops[2].Op)
}

func TestConcurrentMergeNeverLosesAnUpdate(t *testing.T) {
	c := New[string, int, int](AddMerge[int]())
	c.Set("counter", 0)

	const (
		writers = 64
		merges  = 1000
	)
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < merges; j++ {
				c.Merge("counter", 1)
			}
		}()
	}
	wg.Wait()

	v, _ := c.Get("counter")
	assert.Equal(t, writers*merges, v)
}

func TestUncheckedCreateDeleteRestoresSizes(t *testing.T) {
	c := New[string, int, int](AddMerge[int](), WithCapacity[string, int, int](0))
	c.Set("a", 1)

	emptyBefore := c.slots.EmptyLen()
	indexBefore := c.Len()

	c.CreateUnchecked("b", 2)
	assert.Equal(t, 2, c.ReadUnchecked("b"))
	c.DeleteUnchecked("b")

	assert.Equal(t, emptyBefore, c.slots.EmptyLen())
	assert.Equal(t, indexBefore, c.Len())
}

func TestKeyAndFreeSlotCountsPartitionTheVector(t *testing.T) {
	c := New[string, int, int](AddMerge[int](), WithCapacity[string, int, int](8))

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	c.Remove("b")
	c.Merge("a", 5)

	assert.Equal(t, c.SlotCount(), c.Len()+c.slots.EmptyLen())
}
