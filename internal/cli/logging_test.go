package cli

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"oggopus.click/internal/config"
)

func TestMultiLevelHandlerFiltersPerHandler(t *testing.T) {
	var quiet, verbose bytes.Buffer
	logger := slog.New(NewMultiLevelHandler(
		slog.NewTextHandler(&quiet, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(&verbose, &slog.HandlerOptions{Level: slog.LevelDebug}),
	))

	logger.Debug("decoding chunk", "samples", 960)
	logger.Error("seek failed", "offset", 42)

	if strings.Contains(quiet.String(), "decoding chunk") {
		t.Errorf("error-level handler received a debug record: %q", quiet.String())
	}
	if !strings.Contains(quiet.String(), "seek failed") {
		t.Errorf("error-level handler missed the error record: %q", quiet.String())
	}
	for _, msg := range []string{"decoding chunk", "seek failed"} {
		if !strings.Contains(verbose.String(), msg) {
			t.Errorf("debug-level handler missed %q: %q", msg, verbose.String())
		}
	}
}

func TestMultiLevelHandlerEnabled(t *testing.T) {
	h := NewMultiLevelHandler(
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)
	if h.Enabled(t.Context(), slog.LevelDebug) {
		t.Error("expected debug to be disabled")
	}
	if !h.Enabled(t.Context(), slog.LevelInfo) {
		t.Error("expected info to be enabled through the second handler")
	}
	if NewMultiLevelHandler().Enabled(t.Context(), slog.LevelError) {
		t.Error("expected a handler without children to accept nothing")
	}
}

func TestMultiLevelHandlerAttrsAndGroups(t *testing.T) {
	var a, b bytes.Buffer
	logger := slog.New(NewMultiLevelHandler(
		slog.NewTextHandler(&a, nil),
		slog.NewTextHandler(&b, nil),
	)).With("path", "a.opus").WithGroup("link")

	logger.Info("opened", "index", 1)

	for _, out := range []string{a.String(), b.String()} {
		if !strings.Contains(out, "path=a.opus") || !strings.Contains(out, "link.index=1") {
			t.Errorf("expected attrs and group in %q", out)
		}
	}
}

func TestSetupLoggingWritesFile(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	logPath := filepath.Join(t.TempDir(), "logs", "oggopus.log")
	cm := config.NewConfigManagerWithFilesystem(afero.NewMemMapFs())
	cfg := cm.GetDefaultConfig()
	cfg.LogLevel = "error"
	cfg.FileLogging = &config.FileLoggingConfig{Enabled: true, Filename: logPath, MaxSizeMB: 1}

	var stderr bytes.Buffer
	closer := setupLogging(cfg, cm, &stderr)
	if closer == nil {
		t.Fatal("expected a closer for the log file")
	}
	slog.Debug("only in the file")
	if err := closer.Close(); err != nil {
		t.Fatalf("failed to close log file: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "only in the file") {
		t.Errorf("expected debug record in log file, got %q", data)
	}
	if strings.Contains(stderr.String(), "only in the file") {
		t.Errorf("expected stderr to stay quiet, got %q", stderr.String())
	}
}

func TestSetupLoggingWithoutFile(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	cm := config.NewConfigManagerWithFilesystem(afero.NewMemMapFs())
	var stderr bytes.Buffer
	if closer := setupLogging(cm.GetDefaultConfig(), cm, &stderr); closer != nil {
		t.Errorf("expected no closer when file logging is disabled, got %T", closer)
	}

	slog.Warn("visible warning")
	if !strings.Contains(stderr.String(), "visible warning") {
		t.Errorf("expected warning on stderr, got %q", stderr.String())
	}
}
