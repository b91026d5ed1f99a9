// Package logging builds the process logger from the logging section of
// tower.json.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vango-dev/signaltower/internal/config"
)

const (
	// LevelLog is the most verbose threshold, below slog.LevelDebug.
	LevelLog = slog.LevelDebug - 4

	// LevelOff is above every level a record is emitted at.
	LevelOff = slog.Level(1 << 20)
)

var levels = map[string]slog.Level{
	"log":   LevelLog,
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
	"off":   LevelOff,
}

// ParseLevel maps a configured level name to its slog threshold.
func ParseLevel(name string) (slog.Level, error) {
	level, ok := levels[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("logging: unknown level %q", name)
	}
	return level, nil
}

// New returns a logger writing to w. Records carry a "tag" attribute when
// cfg.Tag is set.
func New(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch cfg.Format {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}

	logger := slog.New(handler)
	if cfg.Tag != "" {
		logger = logger.With("tag", cfg.Tag)
	}
	return logger, nil
}
