package binlog

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/retable-io/retable/internal/column"
)

const defaultFlushThresholdBytes = 256 << 20

// Log is a per-column append-only binary log: a queue of Atom records fed
// by column mutations, drained by a single background flusher goroutine
// into a file. Satisfies column.LogSink[K,V,D] via Append, so it can be
// passed directly to column.WithLog.
//
// The flusher is a single owned background worker, joined explicitly on
// Close via errgroup rather than left to leak.
type Log[K comparable, V, D any] struct {
	log *zap.Logger

	file    *os.File
	recSize int

	flushThresholdBytes int64
	flushInterval       time.Duration
	queueWarnDepth      int

	q      *queue[Atom[K, V, D]]
	cancel context.CancelFunc
	eg     *errgroup.Group
	closed atomic.Bool
}

// Option configures a Log at Open time.
type Option[K comparable, V, D any] func(*Log[K, V, D])

// WithFlushThresholdBytes overrides the default 256 MiB buffered-bytes flush
// trigger.
func WithFlushThresholdBytes[K comparable, V, D any](n int64) Option[K, V, D] {
	return func(l *Log[K, V, D]) {
		l.flushThresholdBytes = n
	}
}

// WithFlushInterval additionally flushes the file every d, on top of the
// three event-driven triggers (queue drained, threshold crossed, close).
// Zero, the default, disables the interval entirely.
func WithFlushInterval[K comparable, V, D any](d time.Duration) Option[K, V, D] {
	return func(l *Log[K, V, D]) {
		l.flushInterval = d
	}
}

// WithQueueWarnDepth logs a warning when the pending queue reaches depth n.
// Zero, the default, keeps the queue silent at any depth.
func WithQueueWarnDepth[K comparable, V, D any](n int) Option[K, V, D] {
	return func(l *Log[K, V, D]) {
		l.queueWarnDepth = n
	}
}

// WithLogger attaches a structured logger. Defaults to a no-op logger.
func WithLogger[K comparable, V, D any](logger *zap.Logger) Option[K, V, D] {
	return func(l *Log[K, V, D]) {
		l.log = logger
	}
}

// Open opens (or creates) the log file at path for the schema Atom[K,V,D]
// and starts its background flusher. If the file already exists, its
// header is verified against the current schema fingerprint (ErrSchemaMismatch
// on disagreement, file left untouched) and its complete records are
// replayed into the returned slice, in file order. A truncated trailing
// record, if any, is left in place on disk but excluded from the replay; it
// will be overwritten by the next appended record.
func Open[K comparable, V, D any](path string, opts ...Option[K, V, D]) (*Log[K, V, D], []column.LoggedOp[K, V, D], error) {
	recSize := recordSize[K, V, D]()
	fp := fingerprint[K, V, D]()

	var (
		f   *os.File
		ops []column.LoggedOp[K, V, D]
	)

	existing, err := os.OpenFile(path, os.O_RDONLY, 0o644)
	switch {
	case err == nil:
		ops, err = replayRecords[K, V, D](existing, recSize, fp)
		existing.Close()
		if err != nil {
			return nil, nil, err
		}

		f, err = os.OpenFile(path, os.O_RDWR, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("binlog: reopen %s for append: %w", path, err)
		}
		validBytes := int64(headerSize + len(ops)*recSize)
		if _, err := f.Seek(validBytes, io.SeekStart); err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("binlog: seek to append offset: %w", err)
		}

	case os.IsNotExist(err):
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("binlog: create %s: %w", path, err)
		}
		if err := writeHeader(f, recSize, fp); err != nil {
			f.Close()
			return nil, nil, err
		}

	default:
		return nil, nil, fmt.Errorf("binlog: open %s: %w", path, err)
	}

	l := &Log[K, V, D]{
		log:                 zap.NewNop(),
		file:                f,
		recSize:             recSize,
		flushThresholdBytes: defaultFlushThresholdBytes,
		q:                   newQueue[Atom[K, V, D]](),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.Named("binlog")

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	eg, _ := errgroup.WithContext(ctx)
	l.eg = eg
	eg.Go(l.flusherLoop)
	if l.flushInterval > 0 {
		eg.Go(func() error {
			return l.intervalLoop(ctx)
		})
	}

	return l, ops, nil
}

// writeHeader writes the 4-byte record length and 16-byte schema UUID to a
// freshly created file.
func writeHeader(f *os.File, recSize int, fp uuid.UUID) error {
	var hdr [headerSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(recSize))
	copy(hdr[4:20], fp[:])
	if _, err := f.Write(hdr[:]); err != nil {
		return fmt.Errorf("binlog: write header: %w", err)
	}
	return nil
}

// replayRecords verifies an existing file's header against (recSize, fp),
// then reads as many complete recSize-byte records as are present,
// decoding each into a column.LoggedOp.
func replayRecords[K comparable, V, D any](f *os.File, recSize int, fp uuid.UUID) ([]column.LoggedOp[K, V, D], error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		return nil, fmt.Errorf("binlog: read header: %w", err)
	}

	gotSize := binary.LittleEndian.Uint32(hdr[0:4])
	gotFP, err := uuid.FromBytes(hdr[4:20])
	if err != nil {
		return nil, fmt.Errorf("binlog: malformed header: %w", err)
	}
	if int(gotSize) != recSize || gotFP != fp {
		return nil, ErrSchemaMismatch
	}

	var ops []column.LoggedOp[K, V, D]
	buf := make([]byte, recSize)
	for {
		n, err := io.ReadFull(f, buf)
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF || n < recSize {
			// Partial tail: stop here, leave the bytes on disk untouched.
			break
		}
		if err != nil {
			return nil, fmt.Errorf("binlog: read record: %w", err)
		}

		a, err := decode[K, V, D](buf)
		if err != nil {
			return nil, fmt.Errorf("binlog: decode record: %w", err)
		}
		ops = append(ops, column.LoggedOp[K, V, D]{
			Op: a.Op, Key: a.Key, Value: a.Value, Delta: a.Delta,
		})
	}
	return ops, nil
}

// Append enqueues one Atom for the flusher to persist. Implements
// column.LogSink[K,V,D]. Never blocks.
func (l *Log[K, V, D]) Append(op column.Op, key K, value V, delta D) {
	depth := l.q.push(Atom[K, V, D]{Op: op, Key: key, Value: value, Delta: delta})
	if l.queueWarnDepth > 0 && depth == l.queueWarnDepth {
		l.log.Warn("binlog queue depth high, flusher falling behind", zap.Int("depth", depth))
	}
}

// Close drains the queue, flushes, and joins the flusher goroutine. Any
// fatal IO error the flusher hit surfaces here, so the column owner always
// learns about a LogIO failure at teardown. Returns ErrClosed if called
// twice.
func (l *Log[K, V, D]) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	l.q.close()
	l.cancel()
	werr := l.eg.Wait()
	cerr := l.file.Close()
	if werr != nil {
		return werr
	}
	return cerr
}
