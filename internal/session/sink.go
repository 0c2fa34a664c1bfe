package session

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Sink receives the human-readable status lines of a session.
type Sink interface {
	Line(text string)
}

// FailureSink is a Sink that receives failure lines separately from progress.
// Sinks that do not implement it get failures through Line.
type FailureSink interface {
	Sink
	Failure(text string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(text string)

// Line calls f.
func (f SinkFunc) Line(text string) { f(text) }

// Discard drops every line.
var Discard Sink = SinkFunc(func(string) {})

// WriterSink writes each line prefixed with the local wall-clock time.
type WriterSink struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewWriterSink returns a sink writing "[HH:MM:SS] text" lines to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w, now: time.Now}
}

// Line writes text on its own line.
func (s *WriterSink) Line(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "[%s] %s\n", s.now().Format("15:04:05"), text)
}

// LogSink sends status lines to a logger: progress at info, failures at warn.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink logging through logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Line logs progress at info level.
func (s *LogSink) Line(text string) { s.logger.Info(text) }

// Failure logs at warn level so the default log level keeps it.
func (s *LogSink) Failure(text string) { s.logger.Warn(text) }
