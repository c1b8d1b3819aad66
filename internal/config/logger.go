package config

import (
    "io"
    "log/slog"
    "strings"
)

// SlogLevel maps LOG_LEVEL onto a slog level; unknown values mean info.
func (l Log) SlogLevel() slog.Level {
    switch strings.ToLower(strings.TrimSpace(l.Level)) {
    case "debug":
        return slog.LevelDebug
    case "warn", "warning":
        return slog.LevelWarn
    case "error":
        return slog.LevelError
    default:
        return slog.LevelInfo
    }
}

// NewLogger builds the JSON logger every binary installs as the slog default.
func NewLogger(w io.Writer, l Log) *slog.Logger {
    return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l.SlogLevel()}))
}
