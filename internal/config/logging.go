package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds the slog logger described by s, writing to w.
func NewLogger(s LogSettings, w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(s.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch s.Format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text", "":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, errors.New("unknown log format: " + s.Format)
	}
	return slog.New(handler), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, errors.New("unknown log level: " + s)
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(cfg *Config, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: project", "name", cfg.Project.Name, "source_root", cfg.Project.SourceRoot, "bugs", cfg.Project.BugsPath, "stem", cfg.Project.Stem)
	logger.InfoContext(ctx, "Config: pipeline", "workers", cfg.Pipeline.Workers, "negatives", cfg.Pipeline.Negatives, "strict_resolution", cfg.Pipeline.StrictResolution)
	logger.InfoContext(ctx, "Config: output", "csv", cfg.Output.CSV, "db", cfg.Output.DB, "manifest", cfg.Output.Manifest, "snapshot", cfg.Output.Snapshot)
}
