package binlog

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// flusherLoop drains l.q into l.file until the queue is closed and empty,
// flushing on one of three triggers: the queue runs dry, buffered bytes
// cross flushThresholdBytes, or the queue is closing.
//
// An IO error here is fatal to the log: any records still queued are
// considered lost, so the loop logs and stops rather than retrying. The
// returned error travels through the errgroup to Close, which is where the
// column owner sees it.
func (l *Log[K, V, D]) flusherLoop() error {
	var pending int64

	for {
		a, ok := l.q.pop()
		if !ok {
			return l.flush()
		}

		raw := encode(a)
		if _, err := l.file.Write(raw); err != nil {
			l.log.Error("binlog write failed, flusher stopping", zap.Error(err))
			return fmt.Errorf("binlog: append record: %w", err)
		}
		pending += int64(len(raw))

		if pending >= l.flushThresholdBytes || l.q.empty() {
			if err := l.flush(); err != nil {
				return err
			}
			pending = 0
		}
	}
}

// intervalLoop flushes the file every flushInterval until the log closes.
// Opt-in on top of the event-driven triggers, for callers that want a hard
// bound on how stale the on-disk tail can get under a steady write load
// that never drains the queue or crosses the byte threshold.
func (l *Log[K, V, D]) intervalLoop(ctx context.Context) error {
	t := time.NewTicker(l.flushInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := l.flush(); err != nil {
				return err
			}
		}
	}
}

func (l *Log[K, V, D]) flush() error {
	if err := l.file.Sync(); err != nil {
		l.log.Error("binlog sync failed", zap.Error(err))
		return fmt.Errorf("binlog: flush: %w", err)
	}
	return nil
}
