// Package logging builds the process logger and keeps recent log records in
// memory for the shell and the HTTP API.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// DefaultBufferSize is the event buffer capacity used when Options.Buffer
// is zero.
const DefaultBufferSize = 1000

// Options configures Setup.
type Options struct {
	Level  string    // debug, info, warn, error (default info)
	Format string    // text or json (default text)
	Buffer int       // event buffer capacity
	File   string    // optional log file; empty logs to Writer
	Writer io.Writer // default os.Stderr

	Syslog      string // optional remote syslog host:port (UDP)
	SyslogLevel string // minimum level forwarded to syslog (default warn)
}

// Output is a configured logger together with its event buffer.
type Output struct {
	Logger *slog.Logger
	Events *EventBuffer
	file   *FileWriter
	syslog *SyslogClient
}

// Close releases the log file and the syslog connection, if any.
func (o *Output) Close() error {
	var err error
	if o.syslog != nil {
		err = o.syslog.Close()
	}
	if o.file != nil {
		if ferr := o.file.Close(); ferr != nil {
			err = ferr
		}
	}
	return err
}

// ParseLevel converts a level name to an slog.Level. "warning" is accepted
// as an alias for warn.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Setup builds a text or JSON handler at the requested level, wrapped in a
// BufferHandler.
func Setup(opts Options) (*Output, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	size := opts.Buffer
	if size <= 0 {
		size = DefaultBufferSize
	}

	out := &Output{Events: NewEventBuffer(size)}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	if opts.File != "" {
		fw, err := NewFileWriter(FileConfig{Path: opts.File})
		if err != nil {
			return nil, err
		}
		out.file = fw
		w = fw
	}

	hopts := &slog.HandlerOptions{Level: level}
	var base slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		base = slog.NewTextHandler(w, hopts)
	case "json":
		base = slog.NewJSONHandler(w, hopts)
	default:
		out.Close()
		return nil, fmt.Errorf("unknown log format %q (want text or json)", opts.Format)
	}

	h := NewBufferHandler(base, out.Events)
	if opts.Syslog != "" {
		minLevel := slog.LevelWarn
		if opts.SyslogLevel != "" {
			if minLevel, err = ParseLevel(opts.SyslogLevel); err != nil {
				out.Close()
				return nil, fmt.Errorf("syslog level: %w", err)
			}
		}
		c, err := NewSyslogClient(opts.Syslog, "isamd")
		if err != nil {
			out.Close()
			return nil, err
		}
		c.MinLevel = minLevel
		out.syslog = c
		h = h.WithSyslog(c)
	}

	out.Logger = slog.New(h)
	return out, nil
}
