package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"grab-go/internal/grab"
)

// grabHandler is a custom slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<runID>\t<message>\t<key=value ...>
//
// Every record at or above level goes to file; records at or above
// stderrLevel are echoed to stderr as well.
type grabHandler struct {
	file        io.Writer
	stderr      io.Writer
	level       slog.Level
	stderrLevel slog.Level
	runID       string
	attrs       []slog.Attr
}

func (h *grabHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level || (h.stderr != nil && l >= h.stderrLevel)
}

func (h *grabHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	ts := r.Time.UTC().Format("2006-01-02T15:04:05Z")
	fmt.Fprintf(&buf, "%s\t%s\t%s\t%s", ts, r.Level.String(), h.runID, r.Message)

	// Write pre-set attrs.
	for _, a := range h.attrs {
		fmt.Fprintf(&buf, "\t%s=%v", a.Key, a.Value)
	}

	// Write per-record attrs.
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&buf, "\t%s=%v", a.Key, a.Value)
		return true
	})
	buf.WriteByte('\n')

	if h.file != nil && r.Level >= h.level {
		if _, err := h.file.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	if h.stderr != nil && r.Level >= h.stderrLevel {
		if _, err := h.stderr.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func (h *grabHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &c
}

func (h *grabHandler) WithGroup(string) slog.Handler { return h }

// ParseLevel converts a config log level ("debug", "info", "warn", "error")
// to a slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

// newLogger creates a structured logger that writes to logDir/grab.log and stderr.
// It returns the slog.Logger, the open log file (for cleanup), and any error.
func newLogger(logDir, runID string, level, stderrLevel slog.Level) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "grab.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	handler := &grabHandler{
		file:        f,
		stderr:      os.Stderr,
		level:       level,
		stderrLevel: stderrLevel,
		runID:       runID,
	}
	return slog.New(handler), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the grab.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }

// NewGrabLogger adapts l to grab.Logger for components built outside GrabApp.
func NewGrabLogger(l *slog.Logger) grab.Logger {
	return &slogAdapter{l: l}
}
