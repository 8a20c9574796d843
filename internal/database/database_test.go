package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retable-io/retable/internal/column"
)

func TestCreatePropIsIdempotentByName(t *testing.T) {
	db := New(nil)
	builds := 0
	build := func() *column.Column[string, int, int] {
		builds++
		return column.New[string, int, int](column.AddMerge[int]())
	}

	c1 := CreateProp(db, "counters", build)
	c2 := CreateProp(db, "counters", build)

	assert.Same(t, c1, c2)
	assert.Equal(t, 1, builds, "build must only run once")
}

func TestGetPropReturnsFalseForUnknownName(t *testing.T) {
	db := New(nil)
	_, ok := GetProp[string, int, int](db, "ghost")
	assert.False(t, ok)
}

func TestOpenPropReplaysOnReopen(t *testing.T) {
	dir := t.TempDir()

	db1 := New(nil)
	c1, err := OpenProp[uint64, uint64, uint64](db1, dir, "views", column.AddMerge[uint64](), nil)
	require.NoError(t, err)
	c1.Set(1, 10)
	c1.Merge(1, 5)
	require.NoError(t, c1.Close())

	db2 := New(nil)
	c2, err := OpenProp[uint64, uint64, uint64](db2, dir, "views", column.AddMerge[uint64](), nil)
	require.NoError(t, err)

	v, ok := c2.Get(1)
	require.True(t, ok)
	assert.Equal(t, uint64(15), v)
}
