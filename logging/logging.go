// Package logging provides the structured logger shared by every component
// of the irrigation server.
//
//	logging.Init(slog.LevelInfo, false)
//	log := logging.Component("commands")
//	log.Info("drained", "count", n)
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// Logger is the global logger instance. It writes text at info level until
// Init is called.
var Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

// Init initializes the global logger. JSON output is meant for production.
func Init(level slog.Level, jsonFormat bool) {
	InitWriter(os.Stdout, level, jsonFormat)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level slog.Level, jsonFormat bool) {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if jsonFormat {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// Component returns a logger tagged with the component name.
func Component(name string) *slog.Logger {
	return Logger.With("component", name)
}

// StdLogger bridges the global logger into APIs that want a *log.Logger.
func StdLogger(component string, level slog.Level) *log.Logger {
	return slog.NewLogLogger(Component(component).Handler(), level)
}

// ParseLevel maps a config string to a slog level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
