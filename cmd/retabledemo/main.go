// Command retabledemo exercises a durable column end-to-end: create,
// merge, tick, close, then reopen and verify replay reproduces the same
// state. It is a driver for manual inspection, not a server or query
// shell.
package main

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/retable-io/retable/internal/binlog"
	"github.com/retable-io/retable/internal/column"
	"github.com/retable-io/retable/internal/database"
	"github.com/retable-io/retable/internal/diag"
	"github.com/retable-io/retable/internal/retableconfig"
	"github.com/retable-io/retable/internal/retablelog"
)

func main() {
	cfgPath := ""
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := retableconfig.Load(cfgPath)
	if err != nil {
		reportErr(err)
		os.Exit(1)
	}

	log := retablelog.New(cfg.Log.Level)
	defer log.Sync()
	log = log.Named("retabledemo")

	if err := os.MkdirAll(cfg.Binlog.Dir, 0o755); err != nil {
		log.Fatal("create binlog dir failed", zap.Error(err))
	}

	db := database.New(log)

	views, err := openViews(db, cfg)
	if err != nil {
		reportErr(err)
		log.Fatal("open prop failed", zap.Error(err))
	}

	views.Set(1, 100)
	views.Set(2, 50)
	views.Merge(1, 25)

	views.Tick(func(k uint64, v uint64) (uint64, bool) {
		return 1, true // AddMerge bumps every key's counter by 1
	})

	v1, _ := views.Get(1)
	v2, _ := views.Get(2)
	log.Info("post-tick state", zap.Uint64("views[1]", v1), zap.Uint64("views[2]", v2))

	if err := views.Close(); err != nil {
		reportErr(err)
		log.Fatal("close prop failed", zap.Error(err))
	}

	db2 := database.New(log)
	reopened, err := openViews(db2, cfg)
	if err != nil {
		reportErr(err)
		log.Fatal("reopen prop failed", zap.Error(err))
	}
	defer reopened.Close()

	rv1, _ := reopened.Get(1)
	rv2, _ := reopened.Get(2)
	log.Info("replayed state", zap.Uint64("views[1]", rv1), zap.Uint64("views[2]", rv2))
}

// reportErr prints the failing error chain before the fatal log line.
// DEBUG=1 switches to the field-dumping variant.
func reportErr(err error) {
	if os.Getenv("DEBUG") != "" {
		diag.PrintErrChainDebug(err)
		return
	}
	diag.PrintErrChain(err)
}

func openViews(db *database.Database, cfg *retableconfig.Config) (*column.Column[uint64, uint64, uint64], error) {
	logOpts := []binlog.Option[uint64, uint64, uint64]{
		binlog.WithFlushThresholdBytes[uint64, uint64, uint64](cfg.Binlog.FlushThresholdBytes),
		binlog.WithQueueWarnDepth[uint64, uint64, uint64](cfg.Binlog.QueueWarnDepth),
	}
	if cfg.Binlog.FlushIntervalSeconds > 0 {
		logOpts = append(logOpts,
			binlog.WithFlushInterval[uint64, uint64, uint64](time.Duration(cfg.Binlog.FlushIntervalSeconds)*time.Second))
	}

	return database.OpenProp[uint64, uint64, uint64](
		db, cfg.Binlog.Dir, "views",
		column.AddMerge[uint64](),
		[]column.Option[uint64, uint64, uint64]{
			column.WithCapacity[uint64, uint64, uint64](cfg.Slots.Preallocate),
		},
		logOpts...,
	)
}
