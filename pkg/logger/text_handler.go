package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// TextHandler implements the human-readable log format:
// {timestamp} {LEVEL} [{component}] [{version}] [{hostname}] {message} {key=value}...
//
// Example output:
// 2026-08-26T12:30:45Z INFO [infractl] [v1.2.3] [pod-abc] Reconcile complete resource_id=42
type TextHandler struct {
	w         io.Writer
	component string
	version   string
	hostname  string
	level     slog.Level
	attrs     []slog.Attr
	mu        sync.Mutex
}

// NewTextHandler creates a new text handler
func NewTextHandler(w io.Writer, component, version, hostname string, level slog.Level) *TextHandler {
	return &TextHandler{
		w:         w,
		component: component,
		version:   version,
		hostname:  hostname,
		level:     level,
	}
}

// Enabled reports whether the handler handles records at the given level
func (h *TextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *TextHandler) Handle(ctx context.Context, r slog.Record) error {
	var buf strings.Builder

	buf.WriteString(r.Time.Format(time.RFC3339))
	buf.WriteByte(' ')
	buf.WriteString(strings.ToUpper(r.Level.String()))
	buf.WriteByte(' ')
	fmt.Fprintf(&buf, "[%s] [%s] [%s] ", h.component, h.version, h.hostname)
	buf.WriteString(r.Message)

	for _, attr := range h.attrs {
		fmt.Fprintf(&buf, " %s=%s", attr.Key, formatValue(attr.Value.Any()))
	}

	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&buf, " %s=%s", a.Key, formatValue(a.Value.Any()))
		return true
	})

	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write([]byte(buf.String()))
	return err
}

func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)

	return &TextHandler{
		w:         h.w,
		component: h.component,
		version:   h.version,
		hostname:  h.hostname,
		level:     h.level,
		attrs:     newAttrs,
	}
}

// WithGroup returns a new handler with a group name
func (h *TextHandler) WithGroup(name string) slog.Handler {
	// Groups are not needed for this format
	return h
}

func formatValue(v interface{}) string {
	if v == nil {
		return "null"
	}

	str := fmt.Sprintf("%v", v)
	if strings.ContainsAny(str, " \t\n\"") {
		str = strings.ReplaceAll(str, `"`, `\"`)
		return fmt.Sprintf(`"%s"`, str)
	}
	return str
}
