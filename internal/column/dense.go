package column

import (
	"go.uber.org/zap"

	"github.com/retable-io/retable/internal/slots"
)

// Column is a dense, typed column: a key→slot index plus a cell-locked slot
// vector, with an optional durable log attached.
//
// Concurrency model:
//   - Get/Contains/ModifyWith/Tick take the structural lock in shared mode.
//   - Set/Merge take it in upgradable mode first, promoting to exclusive
//     only when the index itself must be mutated (a new key, or a merge
//     that resolves to deletion).
//   - Remove always takes it in exclusive mode, since it always mutates the
//     index.
type Column[K comparable, V, D any] struct {
	log   *zap.Logger
	lock  *rwLock
	index map[K]uint32
	slots *slots.Slots[V]
	rule  MergeRule[V, D]
	sink  LogSink[K, V, D]
}

// defaultPreallocate is the number of empty slots a new column starts
// with unless WithCapacity overrides it.
const defaultPreallocate = 4096

// Option configures a Column at construction time.
type Option[K comparable, V, D any] func(*Column[K, V, D])

// WithCapacity pre-allocates n empty slots (the default is 4096). Zero is
// valid: the column then grows one slot at a time on demand.
func WithCapacity[K comparable, V, D any](n int) Option[K, V, D] {
	return func(c *Column[K, V, D]) {
		c.slots = slots.WithCapacity[V](n)
	}
}

// WithLog attaches a durable log sink. Every mutating operation hands it
// exactly one LoggedOp, after the in-memory state change is published.
func WithLog[K comparable, V, D any](sink LogSink[K, V, D]) Option[K, V, D] {
	return func(c *Column[K, V, D]) {
		c.sink = sink
	}
}

// WithLogger attaches a structured logger. Defaults to a no-op logger.
func WithLogger[K comparable, V, D any](log *zap.Logger) Option[K, V, D] {
	return func(c *Column[K, V, D]) {
		c.log = log
	}
}

// New returns an empty column governed by rule.
func New[K comparable, V, D any](rule MergeRule[V, D], opts ...Option[K, V, D]) *Column[K, V, D] {
	c := &Column[K, V, D]{
		log:   zap.NewNop(),
		lock:  newRWLock(),
		index: make(map[K]uint32),
		slots: slots.WithCapacity[V](defaultPreallocate),
		rule:  rule,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Column[K, V, D]) emit(op Op, k K, v V, d D) {
	if c.sink != nil {
		c.sink.Append(op, k, v, d)
	}
}

// Close releases the column's attached log, if any, flushing any pending
// records before returning. A no-op on a column with no durable log
// attached.
func (c *Column[K, V, D]) Close() error {
	if closer, ok := c.sink.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// Get returns a copy of the value stored under k, if any.
func (c *Column[K, V, D]) Get(k K) (V, bool) {
	c.lock.RLock()
	idx, ok := c.index[k]
	if !ok {
		c.lock.RUnlock()
		var zero V
		return zero, false
	}
	v := c.slots.Read(idx)
	c.lock.RUnlock()
	return v, true
}

// Contains reports whether k is currently mapped.
func (c *Column[K, V, D]) Contains(k K) bool {
	c.lock.RLock()
	_, ok := c.index[k]
	c.lock.RUnlock()
	return ok
}

// Len reports the number of live keys.
func (c *Column[K, V, D]) Len() int {
	c.lock.RLock()
	n := len(c.index)
	c.lock.RUnlock()
	return n
}

// SlotCount reports the current size of the underlying slot vector
// (occupied + free), which never shrinks over the column's lifetime.
func (c *Column[K, V, D]) SlotCount() int {
	return c.slots.Len()
}

// Set creates k if absent, or swaps its value in place if present. Returns
// the prior value and whether one existed.
func (c *Column[K, V, D]) Set(k K, v V) (prior V, hadPrior bool) {
	c.lock.ULock()

	if _, ok := c.index[k]; ok {
		old := c.UpdateUnchecked(k, v)
		var zeroD D
		c.emit(OpUpdate, k, v, zeroD)
		c.lock.UUnlock()
		return old, true
	}

	// Creating may need to grow the slot vector; Slots arbitrates that
	// internally, so it's safe to call while only holding upgradable.
	// Publishing the key into the index is the structural act that needs
	// exclusive access.
	idx := c.slots.Create(v)
	c.lock.Upgrade()
	c.index[k] = idx
	var zeroD D
	c.emit(OpCreate, k, v, zeroD)
	c.lock.Unlock()

	var zero V
	return zero, false
}

// ModifyWith runs f against the in-place value for k, if present. No
// structural change occurs and no Atom is emitted: this is a convenience
// accessor outside the logged CRUD+merge protocol, so state changed only
// through ModifyWith is not replayed from the log.
func (c *Column[K, V, D]) ModifyWith(k K, f func(v *V)) {
	c.lock.RLock()
	if idx, ok := c.index[k]; ok {
		c.slots.ModifyWith(idx, f)
	}
	c.lock.RUnlock()
}

// Merge applies d to the value stored under k via the column's rule. It is
// a no-op if k is absent — merge never creates. If the rule requests
// deletion the key is unpublished and its slot released.
func (c *Column[K, V, D]) Merge(k K, d D) {
	c.lock.ULock()

	idx, ok := c.index[k]
	if !ok {
		c.lock.UUnlock()
		return
	}

	var drop bool
	c.slots.ModifyWith(idx, func(v *V) {
		drop = c.rule(v, d)
	})

	var zero V
	if !drop {
		c.emit(OpMerge, k, zero, d)
		c.lock.UUnlock()
		return
	}

	c.lock.Upgrade()
	c.slots.Take(idx)
	delete(c.index, k)
	c.emit(OpMerge, k, zero, d)
	c.lock.Unlock()
}

// Remove unpublishes k and releases its slot, returning the prior value.
func (c *Column[K, V, D]) Remove(k K) (V, bool) {
	c.lock.Lock()

	if _, ok := c.index[k]; !ok {
		c.lock.Unlock()
		var zero V
		return zero, false
	}

	val := c.DeleteUnchecked(k)
	var zeroV V
	var zeroD D
	c.emit(OpDelete, k, zeroV, zeroD)
	c.lock.Unlock()
	return val, true
}

// Tick visits every live key in unspecified order, applying f. A non-false
// result is fed back through Merge immediately, before the next key is
// visited, rather than batched to the end of the pass. Only shared locks
// are held during enumeration, so a key deleted mid-pass by another
// goroutine is silently skipped (Get returns false for it).
func (c *Column[K, V, D]) Tick(f func(k K, v V) (D, bool)) {
	c.lock.RLock()
	keys := make([]K, 0, len(c.index))
	for k := range c.index {
		keys = append(keys, k)
	}
	c.lock.RUnlock()

	for _, k := range keys {
		v, ok := c.Get(k)
		if !ok {
			continue
		}
		d, apply := f(k, v)
		if !apply {
			continue
		}
		c.Merge(k, d)
	}
}

// ---------------------------------------------------------------------
// Unchecked primitives. No locking, no log emission: callers (replay, or a
// batch loader already holding the column's exclusive lock for the whole
// operation) are responsible for both. Kept as distinct exported methods,
// never collapsed into the safe wrappers above: replay and hot-path batch
// operations need the unchecked form, the public surface wraps it with a
// presence check.
// ---------------------------------------------------------------------

// CreateUnchecked stores v under a freshly allocated or reused slot.
//
// Precondition: k must be absent from the index.
func (c *Column[K, V, D]) CreateUnchecked(k K, v V) {
	idx := c.slots.Create(v)
	c.index[k] = idx
}

// ReadUnchecked returns the value stored under k.
//
// Precondition: k must be present in the index.
func (c *Column[K, V, D]) ReadUnchecked(k K) V {
	return c.slots.Read(c.index[k])
}

// UpdateUnchecked swaps in v and returns the prior value.
//
// Precondition: k must be present in the index.
func (c *Column[K, V, D]) UpdateUnchecked(k K, v V) V {
	return c.slots.Update(c.index[k], v)
}

// MergeUnchecked applies d via the column's rule and, if it requests
// deletion, unpublishes k immediately.
//
// Precondition: k must be present in the index.
func (c *Column[K, V, D]) MergeUnchecked(k K, d D) {
	idx := c.index[k]
	var drop bool
	c.slots.ModifyWith(idx, func(v *V) {
		drop = c.rule(v, d)
	})
	if drop {
		c.slots.Take(idx)
		delete(c.index, k)
	}
}

// DeleteUnchecked unpublishes k and releases its slot, returning the prior
// value.
//
// Precondition: k must be present in the index.
func (c *Column[K, V, D]) DeleteUnchecked(k K) V {
	idx := c.index[k]
	delete(c.index, k)
	return c.slots.Take(idx)
}

// Load replays a sequence of previously-logged operations against this
// column using the unchecked primitives, in order. An unrecognized Op value
// is skipped.
func (c *Column[K, V, D]) Load(ops []LoggedOp[K, V, D]) {
	for _, r := range ops {
		switch r.Op {
		case OpCreate:
			c.CreateUnchecked(r.Key, r.Value)
		case OpUpdate:
			c.UpdateUnchecked(r.Key, r.Value)
		case OpMerge:
			c.MergeUnchecked(r.Key, r.Delta)
		case OpDelete:
			c.DeleteUnchecked(r.Key)
		default:
			c.log.Warn("skipping unknown op in replay", zap.Uint8("op", uint8(r.Op)))
			continue
		}
	}
	c.log.Debug("replay complete", zap.Int("ops", len(ops)), zap.Int("keys", len(c.index)))
}
