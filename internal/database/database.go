// Package database implements a thin, thread-safe registry mapping a
// column name to the column itself: it owns no data beyond the map and
// forwards CreateProp/GetProp to callers.
package database

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/retable-io/retable/internal/column"
)

// Database is a name→column registry. Columns are type-erased on storage
// (any) since a single map cannot hold *column.Column[K,V,D] for varying
// K, V, D; CreateProp and GetProp recover the concrete type at the
// boundary via a type assertion.
type Database struct {
	log *zap.Logger

	mu    sync.RWMutex
	props map[string]any
}

// New returns an empty registry.
func New(log *zap.Logger) *Database {
	if log == nil {
		log = zap.NewNop()
	}
	return &Database{
		log:   log.Named("database"),
		props: make(map[string]any),
	}
}

// CreateProp registers a column under name, constructing it with build if
// absent. Idempotent w.r.t. name: a second call returns the existing
// column unchanged, even when build would have produced a differently
// configured one.
//
// Panics if name is already registered with a different (K, V, D) —
// programming error, not a runtime data condition.
func CreateProp[K comparable, V, D any](db *Database, name string, build func() *column.Column[K, V, D]) *column.Column[K, V, D] {
	db.mu.Lock()
	defer db.mu.Unlock()

	if existing, ok := db.props[name]; ok {
		col, ok := existing.(*column.Column[K, V, D])
		if !ok {
			panic(fmt.Sprintf("database: prop %q already registered with a different type", name))
		}
		return col
	}

	col := build()
	db.props[name] = col
	db.log.Info("prop created", zap.String("name", name))
	return col
}

// GetProp looks up a previously created column by name.
func GetProp[K comparable, V, D any](db *Database, name string) (*column.Column[K, V, D], bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	existing, ok := db.props[name]
	if !ok {
		return nil, false
	}
	col, ok := existing.(*column.Column[K, V, D])
	return col, ok
}

// Names returns the currently registered prop names in no particular order.
func (db *Database) Names() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]string, 0, len(db.props))
	for name := range db.props {
		out = append(out, name)
	}
	return out
}
