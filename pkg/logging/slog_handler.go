package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// BufferHandler is an slog.Handler that records every log record into an
// EventBuffer in addition to a wrapped base handler (typically stderr).
// Records passing the syslog filter are also forwarded to a remote syslog
// server when one is attached.
type BufferHandler struct {
	base   slog.Handler
	buf    *EventBuffer
	syslog *SyslogClient
	attrs  []slog.Attr
	groups []string
}

// NewBufferHandler wraps a base slog.Handler with event buffering.
func NewBufferHandler(base slog.Handler, buf *EventBuffer) *BufferHandler {
	return &BufferHandler{base: base, buf: buf}
}

// WithSyslog returns a copy of h that also forwards records to c.
func (h *BufferHandler) WithSyslog(c *SyslogClient) *BufferHandler {
	h2 := *h
	h2.syslog = c
	return &h2
}

// Buffer returns the event buffer records are written to.
func (h *BufferHandler) Buffer() *EventBuffer {
	return h.buf
}

// Enabled implements slog.Handler.
func (h *BufferHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *BufferHandler) Handle(ctx context.Context, r slog.Record) error {
	err := h.base.Handle(ctx, r)
	attrs := formatAttrs(r, h.attrs, h.groups)
	if h.buf != nil {
		h.buf.Add(EventRecord{
			Time:    r.Time,
			Level:   r.Level,
			Message: r.Message,
			Attrs:   attrs,
		})
	}
	if h.syslog != nil && h.syslog.ShouldSend(r.Level) {
		msg := r.Message
		if attrs != "" {
			msg += " " + attrs
		}
		h.syslog.Send(Severity(r.Level), msg)
	}
	return err
}

// WithAttrs implements slog.Handler.
func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &BufferHandler{
		base:   h.base.WithAttrs(attrs),
		buf:    h.buf,
		syslog: h.syslog,
		attrs:  append(append([]slog.Attr{}, h.attrs...), attrs...),
		groups: h.groups,
	}
}

// WithGroup implements slog.Handler.
func (h *BufferHandler) WithGroup(name string) slog.Handler {
	return &BufferHandler{
		base:   h.base.WithGroup(name),
		buf:    h.buf,
		syslog: h.syslog,
		attrs:  h.attrs,
		groups: append(append([]string{}, h.groups...), name),
	}
}

// formatAttrs produces a compact "k=v" rendering of the record attributes.
func formatAttrs(r slog.Record, preAttrs []slog.Attr, groups []string) string {
	var parts []string
	for _, a := range preAttrs {
		parts = append(parts, fmt.Sprintf("%s=%s", a.Key, a.Value.String()))
	}
	r.Attrs(func(a slog.Attr) bool {
		key := a.Key
		if len(groups) > 0 {
			key = strings.Join(groups, ".") + "." + key
		}
		parts = append(parts, fmt.Sprintf("%s=%s", key, a.Value.String()))
		return true
	})
	return strings.Join(parts, " ")
}
