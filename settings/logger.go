package settings

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel parses a slog level name such as "debug" or "WARN".
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %s %q", ErrInvalidSetting, KeyLogLevel, s)
	}
	return level, nil
}

// NewLogger builds a text or JSON slog logger writing to output, or to
// stderr when output is nil. An unknown level falls back to info.
func NewLogger(level, format string, output io.Writer) *slog.Logger {
	if output == nil {
		output = os.Stderr
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}
	return slog.New(handler)
}

// Logger builds the logger described by s.
func (s *Settings) Logger(output io.Writer) *slog.Logger {
	return NewLogger(s.LogLevel, s.LogFormat, output)
}
