package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
)

// BufferedHandler is a slog.Handler that keeps formatted records in memory.
// Tests install it to assert on what a component logged.
type BufferedHandler struct {
	mu    *sync.Mutex
	buf   *bytes.Buffer
	level slog.Leveler
	attrs []slog.Attr
}

// NewBufferedHandler returns an empty handler. A nil level captures everything.
func NewBufferedHandler(level slog.Leveler) *BufferedHandler {
	if level == nil {
		level = slog.LevelDebug
	}
	return &BufferedHandler{mu: &sync.Mutex{}, buf: &bytes.Buffer{}, level: level}
}

// Enabled implements slog.Handler.
func (h *BufferedHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

// Handle implements slog.Handler. Each record becomes one line:
// LEVEL message k=v k=v.
func (h *BufferedHandler) Handle(_ context.Context, r slog.Record) error {
	var line strings.Builder
	line.WriteString(r.Level.String())
	line.WriteByte(' ')
	line.WriteString(r.Message)
	for _, a := range h.attrs {
		line.WriteByte(' ')
		line.WriteString(a.String())
	}
	r.Attrs(func(a slog.Attr) bool {
		line.WriteByte(' ')
		line.WriteString(a.String())
		return true
	})
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf.WriteString(line.String())
	return nil
}

// WithAttrs implements slog.Handler. The returned handler shares the buffer.
func (h *BufferedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &BufferedHandler{mu: h.mu, buf: h.buf, level: h.level, attrs: merged}
}

// WithGroup implements slog.Handler. Groups are flattened.
func (h *BufferedHandler) WithGroup(string) slog.Handler { return h }

// String returns everything captured so far.
func (h *BufferedHandler) String() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buf.String()
}

// Contains reports whether the captured output contains s.
func (h *BufferedHandler) Contains(s string) bool {
	return strings.Contains(h.String(), s)
}
