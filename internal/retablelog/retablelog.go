// Package retablelog builds the process-wide zap logger, branching between
// a colored development config and a JSON production config on the ENV
// environment variable.
package retablelog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger for the "dev" or "prod" environment, matching
// whichever the ENV environment variable names; unset or any other value
// behaves as "prod". level is one of "debug", "info", "warn", "error";
// empty or unparsable keeps each config's own default. Callers own the
// returned logger's Sync.
func New(level string) *zap.Logger {
	if os.Getenv("ENV") == "dev" {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = ""
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
		cfg.DisableCaller = true
		applyLevel(&cfg, level)
		return zap.Must(cfg.Build())
	}

	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	applyLevel(&cfg, level)
	return zap.Must(cfg.Build())
}

func applyLevel(cfg *zap.Config, level string) {
	if level == "" {
		return
	}
	if parsed, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = parsed
	}
}
