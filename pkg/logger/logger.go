package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Global logger configuration
var (
	globalLogger *slog.Logger
	globalMu     sync.RWMutex
	initOnce     sync.Once

	// Build info set at initialization
	component = "infractl"
	version   = "unknown"
	hostname  = "unknown"
)

// Config holds the logger configuration
type Config struct {
	Level   string // debug, info, warn, error
	Format  string // text, json
	Output  string // stdout, stderr
	Version string // application version
}

// Initialize sets up the global logger with the given configuration
func Initialize(cfg Config) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if cfg.Version != "" {
		version = cfg.Version
	}

	if h, err := os.Hostname(); err == nil {
		hostname = h
	}

	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		opts := &slog.HandlerOptions{
			Level: level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				// Rename time/msg to the field names our log pipeline expects
				if a.Key == slog.TimeKey {
					a.Key = "timestamp"
				}
				if a.Key == slog.MessageKey {
					a.Key = "message"
				}
				return a
			},
		}
		handler = slog.NewJSONHandler(output, opts)
		handler = handler.WithAttrs([]slog.Attr{
			slog.String("component", component),
			slog.String("version", version),
			slog.String("hostname", hostname),
		})
	default:
		handler = NewTextHandler(output, component, version, hostname, level)
	}

	// Wrap handler to add context correlation attributes
	handler = &contextHandler{Handler: handler}

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}

// contextHandler wraps a slog.Handler to add context-based attributes
type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, field := range ContextFieldsRegistry {
		if val, ok := field.Getter(ctx); ok && val != "" {
			r.AddAttrs(slog.String(field.Name, val))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}

// Default returns the global logger, initializing with defaults if necessary
func Default() *slog.Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()

	if l == nil {
		initOnce.Do(func() {
			Initialize(Config{
				Level:  "info",
				Format: "text",
				Output: "stdout",
			})
		})
		globalMu.RLock()
		l = globalLogger
		globalMu.RUnlock()
	}
	return l
}

// With returns a logger with the given attributes
func With(args ...any) *slog.Logger {
	return Default().With(args...)
}

// WithError returns a logger carrying the error as a structured field
func WithError(err error) *slog.Logger {
	return Default().With(slog.String("error", err.Error()))
}

// Context-aware package-level helpers. The context handler pulls correlation
// fields (operation id, request id, trace context) out of ctx.

func Debug(ctx context.Context, msg string, args ...any) {
	Default().DebugContext(ctx, msg, args...)
}

func Info(ctx context.Context, msg string, args ...any) {
	Default().InfoContext(ctx, msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	Default().WarnContext(ctx, msg, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	Default().ErrorContext(ctx, msg, args...)
}
