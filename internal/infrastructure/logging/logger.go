package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/gray-logic-av/internal/infrastructure/config"
)

// Field keys attached by Component and ForDevice.
const (
	KeyComponent = "component"
	KeyDevice    = "device_id"
)

const serviceName = "graylogic-av"

// Logger is the service logger. Child loggers made with Component run at
// the level configured for that component, falling back to the root level.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
	levels map[string]slog.Level
}

// New builds the root logger from cfg. Every record carries the service
// name and version.
func New(cfg config.LoggingConfig, version string) *Logger {
	return newLogger(outputFor(cfg.Output), cfg, version)
}

func newLogger(w io.Writer, cfg config.LoggingConfig, version string) *Logger {
	// Formatting handlers accept everything; levelHandler does the
	// filtering so a component can be more verbose than the root.
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})

	levels := make(map[string]slog.Level, len(cfg.Components))
	for name, level := range cfg.Components {
		levels[strings.ToLower(name)] = parseLevel(level)
	}

	return &Logger{
		Logger: slog.New(&levelHandler{next: handler, min: parseLevel(cfg.Level)}),
		levels: levels,
	}
}

func outputFor(name string) io.Writer {
	if strings.EqualFold(name, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

// parseLevel maps debug, info, warn(ing) and error to slog levels.
// Anything else is info.
func parseLevel(level string) slog.Level {
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

// With returns a child logger with extra attributes. It keeps the parent's
// level.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), levels: l.levels}
}

// Component returns a child logger tagged with component=name and any extra
// args, filtered at the level configured for name in logging.components.
func (l *Logger) Component(name string, args ...any) *Logger {
	child := l.With(append([]any{KeyComponent, name}, args...)...)

	level, ok := l.levels[strings.ToLower(name)]
	if !ok {
		return child
	}
	if h, isLevel := child.Handler().(*levelHandler); isLevel {
		child.Logger = slog.New(&levelHandler{next: h.next, min: level})
	}
	return child
}

// ForDevice returns a component logger for one device.
//
//	dlog := logger.ForDevice("dispatch", "lounge-projector")
//	dlog.Info("command queued", "command", "input_hdmi1")
func (l *Logger) ForDevice(component, deviceID string) *Logger {
	return l.Component(component, KeyDevice, deviceID)
}

// Default is the logger used before configuration is loaded: JSON on
// stdout at info.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

// Discard returns a logger that drops every record.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// levelHandler drops records below min before they reach next.
type levelHandler struct {
	next slog.Handler
	min  slog.Level
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.min && h.next.Enabled(ctx, level)
}

func (h *levelHandler) Handle(ctx context.Context, record slog.Record) error {
	return h.next.Handle(ctx, record)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{next: h.next.WithAttrs(attrs), min: h.min}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{next: h.next.WithGroup(name), min: h.min}
}
