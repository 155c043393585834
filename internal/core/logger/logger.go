// Package logger provides the structured logging engine for inspiral.
// Uses log/slog with support for multiple sinks: stderr, file, TUI.
package logger

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Logger
// ─────────────────────────────────────────────────────────────────────────────

// Logger wraps slog.Logger with inspiral-specific utilities.
type Logger struct {
	*slog.Logger
	auditMu sync.Mutex
	auditW  io.Writer // append-only audit log writer (nil = disabled)
}

// tuiSinkCh receives formatted log lines for TUI display.
// While it is set, Init does not write to stderr: the TUI owns the terminal.
var tuiSinkCh chan string

// SetTUISink registers a channel that receives log lines destined for the TUI.
// Call it before Init.
func SetTUISink(ch chan string) {
	tuiSinkCh = ch
}

// ParseLevel maps a config level string onto a slog.Level. Unknown values map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Init initialises the global logger and returns it.
func Init(level, format, logFile, home string, debug bool) (*Logger, error) {
	lvl := ParseLevel(level)
	if debug {
		lvl = slog.LevelDebug
	}

	var writers []io.Writer
	if tuiSinkCh == nil {
		writers = append(writers, os.Stderr)
	}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0750); err == nil {
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
			if err == nil {
				writers = append(writers, f)
			}
		}
	}

	if tuiSinkCh != nil {
		writers = append(writers, &tuiWriter{ch: tuiSinkCh})
	}

	l := newLogger(io.MultiWriter(writers...), lvl, format, debug)
	slog.SetDefault(l.Logger)

	if home != "" {
		auditPath := filepath.Join(home, "audit.log")
		if af, err := os.OpenFile(auditPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640); err == nil {
			l.auditW = af
		}
	}
	return l, nil
}

// New builds a Logger writing to w only. Used by tests and embedded callers.
func New(w io.Writer, level, format string) *Logger {
	return newLogger(w, ParseLevel(level), format, false)
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, "error", "text")
}

func newLogger(out io.Writer, lvl slog.Level, format string, addSource bool) *Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: lvl, AddSource: addSource}
	if format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// SetAuditWriter redirects audit entries to w (nil disables the audit trail).
func (l *Logger) SetAuditWriter(w io.Writer) {
	l.auditMu.Lock()
	l.auditW = w
	l.auditMu.Unlock()
}

// ─────────────────────────────────────────────────────────────────────────────
// Audit logging
// ─────────────────────────────────────────────────────────────────────────────

// AuditEntry represents a single audit log event.
type AuditEntry struct {
	Timestamp time.Time         `json:"ts"`
	Op        string            `json:"op"`
	User      string            `json:"user"`
	RunID     string            `json:"run_id,omitempty"`
	Result    string            `json:"result"` // completed | interrupted | failed | success
	Meta      map[string]string `json:"meta,omitempty"`
}

// Audit writes an append-only audit log entry.
func (l *Logger) Audit(entry AuditEntry) {
	l.Info("audit",
		"op", entry.Op,
		"user", entry.User,
		"run", entry.RunID,
		"result", entry.Result,
	)

	l.auditMu.Lock()
	defer l.auditMu.Unlock()
	if l.auditW == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.Timestamp = entry.Timestamp.UTC()
	line, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_, _ = l.auditW.Write(append(line, '\n'))
}

// CurrentUser returns the login name used in audit entries.
func CurrentUser() string {
	for _, k := range []string{"USER", "USERNAME", "LOGNAME"} {
		if u := os.Getenv(k); u != "" {
			return u
		}
	}
	return "unknown"
}

// ─────────────────────────────────────────────────────────────────────────────
// TUI writer
// ─────────────────────────────────────────────────────────────────────────────

// tuiWriter implements io.Writer by forwarding lines to the TUI sink channel.
type tuiWriter struct {
	mu sync.Mutex
	ch chan<- string
}

func (w *tuiWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case w.ch <- strings.TrimRight(string(p), "\n"):
	default: // drop when the channel is full
	}
	return len(p), nil
}
