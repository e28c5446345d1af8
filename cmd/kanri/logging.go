package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/m-mizutani/clog"
)

// loggerConfig selects the slog handler.
type loggerConfig struct {
	level  string
	format string
	color  bool
}

func (c loggerConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("level", c.level),
		slog.String("format", c.format),
	)
}

// newLogger builds the process logger writing to w.
func newLogger(cfg loggerConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.level, err)
	}

	switch strings.ToLower(cfg.format) {
	case "", "console":
		return slog.New(clog.New(
			clog.WithWriter(w),
			clog.WithLevel(level),
			clog.WithColor(cfg.color),
		)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (want console or json)", cfg.format)
	}
}
