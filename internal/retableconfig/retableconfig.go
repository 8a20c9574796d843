// Package retableconfig holds the JSON-decodable configuration for column
// defaults, log flush policy, and logging.
package retableconfig

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the top-level configuration document.
type Config struct {
	Slots  SlotsConfig  `json:"slots"`
	Binlog BinlogConfig `json:"binlog"`
	Log    LogConfig    `json:"log"`
}

// SlotsConfig governs a column's initial slot pre-allocation.
type SlotsConfig struct {
	// Preallocate is the number of empty slots a new column starts with
	// (default 4096).
	Preallocate int `json:"preallocate"`
}

// BinlogConfig governs the append log's file location and flush policy.
type BinlogConfig struct {
	// Dir is the directory holding one <name>.bin file per prop.
	Dir string `json:"dir"`
	// FlushThresholdBytes is the buffered-bytes flush trigger (default
	// 256 MiB).
	FlushThresholdBytes int64 `json:"flush_threshold_bytes"`
	// FlushIntervalSeconds, when > 0, adds a periodic flush on top of the
	// event-driven triggers. 0 disables it.
	FlushIntervalSeconds int `json:"flush_interval_seconds"`
	// QueueWarnDepth, when > 0, is the pending-queue length at which the
	// log emits a warning on append instead of staying silent.
	QueueWarnDepth int `json:"queue_warn_depth"`
}

// LogConfig governs process-wide structured logging.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `json:"level"`
}

// Default returns the configuration a new database starts with absent an
// on-disk file.
func Default() *Config {
	return &Config{
		Slots: SlotsConfig{
			Preallocate: 4096,
		},
		Binlog: BinlogConfig{
			Dir:                 "./data",
			FlushThresholdBytes: 256 << 20,
			QueueWarnDepth:      10000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads and decodes path over the default configuration, then
// validates the result. An empty path returns Default() unchanged.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("retableconfig: read %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("retableconfig: parse %s: %w", path, err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Slots.Preallocate < 0 {
		return fmt.Errorf("retableconfig: slots.preallocate must be >= 0")
	}
	if cfg.Binlog.FlushThresholdBytes < 1 {
		return fmt.Errorf("retableconfig: binlog.flush_threshold_bytes must be > 0")
	}
	if cfg.Binlog.FlushIntervalSeconds < 0 {
		return fmt.Errorf("retableconfig: binlog.flush_interval_seconds must be >= 0")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("retableconfig: log.level %q is not one of debug, info, warn, error", cfg.Log.Level)
	}
	return nil
}
