// Package log provides structured logging (slog) routed to the DOME host log.
package log

import (
	"context"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
)

// Sink receives formatted log lines. A plugin Context is a Sink that writes to
// the host log for the duration of its callback.
type Sink interface {
	Log(text string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(text string) error

// Log implements Sink.
func (f SinkFunc) Log(text string) error {
	return f(text)
}

// HostHandler implements slog.Handler to route records through the host log.
type HostHandler struct {
	sink   Sink
	prefix string
	attrs  []string
	opts   handlerConfig
}

// HandlerOption configures the HostHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	level     slog.Leveler
	addSource bool
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level: slog.LevelInfo,
	}
}

// WithLevel sets the minimum log level to report.
// Records below this level never reach the host.
func WithLevel(level slog.Leveler) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// NewHandler creates a new HostHandler writing to sink.
func NewHandler(sink Sink, opts ...HandlerOption) *HostHandler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &HostHandler{sink: sink, opts: cfg}
}

// Enabled reports whether the handler handles records at the given level.
func (h *HostHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

// Handle formats the record as a single line and writes it to the sink.
func (h *HostHandler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(record.Level.String())
	b.WriteString("] ")
	b.WriteString(record.Message)

	for _, a := range h.attrs {
		b.WriteByte(' ')
		b.WriteString(a)
	}
	record.Attrs(func(attr slog.Attr) bool {
		appendAttr(&b, h.prefix, attr)
		return true
	})

	if h.opts.addSource && record.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{record.PC})
		f, _ := frames.Next()
		b.WriteString(" source=")
		b.WriteString(f.File)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(f.Line))
	}
	// DOME does not terminate log lines.
	b.WriteByte('\n')

	return h.sink.Log(b.String())
}

// WithAttrs returns a new HostHandler that includes the given attributes.
func (h *HostHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	newHandler := *h
	newHandler.attrs = append([]string(nil), h.attrs...)
	for _, attr := range attrs {
		var b strings.Builder
		appendAttr(&b, h.prefix, attr)
		if b.Len() > 0 {
			newHandler.attrs = append(newHandler.attrs, strings.TrimPrefix(b.String(), " "))
		}
	}
	return &newHandler
}

// WithGroup returns a new HostHandler that qualifies later attributes with name.
func (h *HostHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	newHandler := *h
	newHandler.prefix = h.prefix + name + "."
	return &newHandler
}
