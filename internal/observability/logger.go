package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/where/internal/config"
)

// NewLogger creates a structured logger from the config and sets it as the slog default.
// LOG_FORMAT "text" gives a human-readable tint handler, colored only on a terminal;
// anything else gives JSON.
func NewLogger(cfg *config.Config) *slog.Logger {
	if !strings.EqualFold(cfg.LogFormat, "text") {
		return sharedobs.NewLogger(cfg.LogLevel, "json")
	}
	logger := slog.New(newTextHandler(os.Stdout, parseLevel(cfg.LogLevel)))
	slog.SetDefault(logger)
	return logger
}

// NewTextLogger returns a tint logger writing to w without changing the
// slog default. Command-line tools use it to keep logs off stdout.
func NewTextLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(newTextHandler(w, parseLevel(level)))
}

func newTextHandler(w io.Writer, level slog.Level) slog.Handler {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	})
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
