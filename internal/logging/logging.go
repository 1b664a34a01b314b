// Package logging builds the zerolog loggers used by the CLI and adapts
// subprocess output into structured log lines.
package logging

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ParseLevel maps a level name to a zerolog level. Unknown names mean info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "err":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// New returns a logger writing to w. format "json" emits one JSON object per
// line; anything else uses the human console writer.
func New(w io.Writer, level, format string) zerolog.Logger {
	var out io.Writer = w
	if strings.ToLower(format) != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// NewRunID returns a fresh identifier attached to every log line of a run.
func NewRunID() string { return uuid.NewString() }

// LineWriter logs complete lines written to it, one event per line.
// It is safe for concurrent use so stdout and stderr may share one.
type LineWriter struct {
	mu     sync.Mutex
	log    zerolog.Logger
	level  zerolog.Level
	stream string
	buf    []byte
}

// NewLineWriter returns a writer that logs each line at level with a
// "stream" field set to stream.
func NewLineWriter(l zerolog.Logger, level zerolog.Level, stream string) *LineWriter {
	return &LineWriter{log: l, level: level, stream: stream}
}

func (lw *LineWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		lw.emit(string(lw.buf[:idx]))
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (lw *LineWriter) Flush() {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if len(lw.buf) > 0 {
		lw.emit(string(lw.buf))
		lw.buf = nil
	}
}

func (lw *LineWriter) emit(line string) {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return
	}
	lw.log.WithLevel(lw.level).Str("stream", lw.stream).Msg(line)
}

