package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/raizurai/userhub/internal/config"
)

// NewLogger builds the application logger. With logging.to_file enabled the
// output is also written to <dir>/app.log, rotated per logging.rotation. The
// returned close func releases that file and is a no-op otherwise.
func NewLogger(cfg config.LoggingConfig, env string) (*slog.Logger, func() error, error) {
	var out io.Writer = os.Stdout
	closeFn := func() error { return nil }

	if cfg.ToFile {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}

		f := RotatingFile(filepath.Join(cfg.Dir, "app.log"), cfg.Rotation)
		out = io.MultiWriter(os.Stdout, f)
		closeFn = f.Close
	}

	return slog.New(NewTraceHandler(newHandler(out, cfg, env))), closeFn, nil
}

// RotatingFile returns an append-only writer for path that rolls over once
// the file passes rot.MaxSizeMB. The file is opened on first write.
func RotatingFile(path string, rot config.RotationConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		MaxAge:     rot.MaxAgeDays,
		Compress:   rot.Compress,
	}
}

func newHandler(out io.Writer, cfg config.LoggingConfig, env string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level, env),
		AddSource: cfg.AddSource,
	}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(out, opts)
	}

	return slog.NewJSONHandler(out, opts)
}

// ParseLevel maps a configured level name to slog. An empty value falls back
// to debug in dev and info everywhere else.
func ParseLevel(level, env string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "critical":
		return slog.LevelError
	}

	if env == "dev" {
		return slog.LevelDebug
	}

	return slog.LevelInfo
}
