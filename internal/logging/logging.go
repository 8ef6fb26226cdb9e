// Package logging builds the application logger. The TUI owns the
// terminal, so everything goes to a file.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cheesefinder/internal/config"
)

// New returns a logger writing JSON lines to settings.File and installs it
// as the global logger. An empty File yields a no-op logger. The returned
// function flushes the logger and restores the previous globals.
func New(settings config.LogSettings) (*zap.Logger, func(), error) {
	if settings.File == "" {
		logger := zap.NewNop()
		restore := zap.ReplaceGlobals(logger)
		return logger, restore, nil
	}

	level := zapcore.InfoLevel
	if settings.Level != "" {
		if err := level.UnmarshalText([]byte(settings.Level)); err != nil {
			return nil, nil, fmt.Errorf("log level %q: %w", settings.Level, err)
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{settings.File}
	cfg.ErrorOutputPaths = []string{settings.File}
	cfg.Sampling = nil
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	restore := zap.ReplaceGlobals(logger)
	return logger, func() {
		_ = logger.Sync()
		restore()
	}, nil
}
