package column

// MergeRule folds a delta D into an in-place value V. The returned bool
// requests deletion of the entry when true — a rule asking to delete is a
// first-class outcome, not an error.
//
// Carried as a capability parameter on the column itself (one rule per
// column, bound at construction) rather than dispatched through a global
// per-(V,D) registry: a stored function value on the column eliminates the
// runtime type-dispatch a "one rule per pair, globally registered" design
// would need.
type MergeRule[V, D any] func(v *V, d D) bool

// Numeric is the set of built-in types AddMerge can fold deltas into with
// plain addition.
type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// AddMerge is the numeric default: merging adds the delta to the value in
// place, and never requests deletion.
func AddMerge[V Numeric]() MergeRule[V, V] {
	return func(v *V, d V) bool {
		*v += d
		return false
	}
}

// IdentityMerge is the default rule for columns with no delta type (D is
// struct{}): merge is a no-op that keeps the current value.
func IdentityMerge[V any]() MergeRule[V, struct{}] {
	return func(_ *V, _ struct{}) bool {
		return false
	}
}
