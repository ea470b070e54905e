package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"oggopus.click/internal/config"
)

// MultiLevelHandler fans records out to handlers that each keep their own
// level, so stderr can stay quiet while the log file records everything.
type MultiLevelHandler struct {
	handlers []slog.Handler
}

// NewMultiLevelHandler returns a handler writing to every handler given.
func NewMultiLevelHandler(handlers ...slog.Handler) *MultiLevelHandler {
	return &MultiLevelHandler{handlers: handlers}
}

// Enabled reports whether any wrapped handler accepts level.
func (h *MultiLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes a clone of record to each handler that accepts its level.
// A failing handler does not stop the others.
func (h *MultiLevelHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *MultiLevelHandler) each(fn func(slog.Handler) slog.Handler) *MultiLevelHandler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = fn(handler)
	}
	return NewMultiLevelHandler(handlers...)
}

// WithAttrs implements slog.Handler.
func (h *MultiLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.each(func(handler slog.Handler) slog.Handler { return handler.WithAttrs(attrs) })
}

// WithGroup implements slog.Handler.
func (h *MultiLevelHandler) WithGroup(name string) slog.Handler {
	return h.each(func(handler slog.Handler) slog.Handler { return handler.WithGroup(name) })
}

// setupLogging installs the default logger: stderr at the configured level
// and, when enabled, a rotating log file at debug level. The returned closer
// is nil when no file is open.
func setupLogging(cfg *config.Config, cm *config.ConfigManager, stderr io.Writer) io.Closer {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}),
	}

	var fileWriter *lumberjack.Logger
	if fl := cfg.FileLogging; fl != nil && fl.Enabled {
		logFilePath := cm.ResolveLogFilePath(fl.Filename)
		logDir := filepath.Dir(logFilePath)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			slog.Error("failed to create log directory", "path", logDir, "error", err)
		} else {
			fileWriter = &lumberjack.Logger{
				Filename:   logFilePath,
				MaxSize:    fl.MaxSizeMB,
				MaxBackups: fl.MaxBackups,
				MaxAge:     fl.MaxAgeDays,
				Compress:   fl.Compress,
			}
			handlers = append(handlers, slog.NewTextHandler(fileWriter, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
	}

	slog.SetDefault(slog.New(NewMultiLevelHandler(handlers...)))
	slog.Debug("logging setup completed", "level", level.String(), "file", fileWriter != nil)

	if fileWriter == nil {
		return nil
	}
	return fileWriter
}
