package diag

import (
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flushError builds the kind of wrapped IO chain a failed log flush
// produces: a message layer over a *os.PathError over a sentinel.
func flushError(t *testing.T) error {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "diag")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	_, werr := f.Write([]byte("x")) // write on a closed file
	require.Error(t, werr)
	return fmt.Errorf("binlog: flush: %w", werr)
}

func TestPrintErrChainWalksEveryLayer(t *testing.T) {
	err := flushError(t)

	out := captureStdout(t, func() { PrintErrChain(err) })
	assert.Contains(t, out, "binlog: flush")
	assert.Contains(t, out, "*fs.PathError")
	assert.Contains(t, out, "file already closed")
}

func TestPrintErrChainDebugDumpsLayerFields(t *testing.T) {
	err := flushError(t)

	out := captureStdout(t, func() { PrintErrChainDebug(err) })
	assert.Contains(t, out, "*fs.PathError")
	assert.Contains(t, out, "Field Op (string)")
	assert.Contains(t, out, "Has Unwrap()")
}

func TestPrintErrChainNil(t *testing.T) {
	out := captureStdout(t, func() { PrintErrChain(nil) })
	assert.Contains(t, out, "<nil>")
}

func captureStdout(t *testing.T, f func()) string {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	f()
	require.NoError(t, w.Close())

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}
