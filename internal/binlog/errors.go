package binlog

import "errors"

// ErrSchemaMismatch is returned by Open when the log file's fingerprint
// disagrees with the type parameters requested by the caller. Fatal: the
// file is left untouched, never truncated.
var ErrSchemaMismatch = errors.New("binlog: schema fingerprint mismatch")

// ErrClosed is returned by Close when the log has already been closed.
var ErrClosed = errors.New("binlog: log is closed")
