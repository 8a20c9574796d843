package database

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/retable-io/retable/internal/binlog"
	"github.com/retable-io/retable/internal/column"
)

// OpenProp registers a durable column under name, backed by a log file at
// <dir>/<name>.bin. If the file already exists its records are replayed
// before the column is published into the registry, so a restart picks up
// where the previous process left off.
//
// Idempotent w.r.t. name like CreateProp: a second call for an
// already-registered name returns the existing column and leaves its log
// untouched.
//
// colOpts configure the column (capacity, logger); logOpts configure its
// log (flush threshold, flush interval, queue warn depth). Either may be
// nil/empty.
func OpenProp[K comparable, V, D any](db *Database, dir, name string, rule column.MergeRule[V, D], colOpts []column.Option[K, V, D], logOpts ...binlog.Option[K, V, D]) (*column.Column[K, V, D], error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if existing, ok := db.props[name]; ok {
		col, ok := existing.(*column.Column[K, V, D])
		if !ok {
			return nil, fmt.Errorf("database: prop %q already registered with a different type", name)
		}
		return col, nil
	}

	path := filepath.Join(dir, name+".bin")
	allLogOpts := append([]binlog.Option[K, V, D]{binlog.WithLogger[K, V, D](db.log)}, logOpts...)
	log, ops, err := binlog.Open[K, V, D](path, allLogOpts...)
	if err != nil {
		return nil, fmt.Errorf("database: open prop %q: %w", name, err)
	}

	allColOpts := append([]column.Option[K, V, D]{column.WithLog[K, V, D](log)}, colOpts...)
	col := column.New(rule, allColOpts...)
	col.Load(ops)

	db.props[name] = col
	db.log.Info("prop opened", zap.String("name", name), zap.String("path", path), zap.Int("replayed", len(ops)))
	return col, nil
}
