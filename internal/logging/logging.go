// Package logging builds the process-wide zap logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the logger's level and output shape.
type Options struct {
	Level  string
	Daemon bool
}

// Config returns the zap configuration for opts. Daemon mode defaults to warn
// and always writes JSON; foreground mode uses the console encoder.
func Config(opts Options) (zap.Config, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}

	level := opts.Level
	if level == "" {
		level = "info"
		if opts.Daemon {
			level = "warn"
		}
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zap.Config{}, fmt.Errorf("log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	if !opts.Daemon {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.DisableStacktrace = true
	}
	return cfg, nil
}

// New builds a logger for opts.
func New(opts Options) (*zap.Logger, error) {
	cfg, err := Config(opts)
	if err != nil {
		return nil, err
	}
	return cfg.Build()
}
