// Package logging defines the log-record port the engine emits through.
// Sinks are injected; the engine never depends on delivery.
package logging

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

type Level int8

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Record is a single log event. File, Function and Line are captured at the
// call site.
type Record struct {
	Timestamp time.Time
	Level     Level
	File      string
	Function  string
	Line      int
	Message   string
}

// Sink receives records. Implementations may drop or reformat them freely.
type Sink interface {
	Emit(Record)
}

// Logger attaches call-site metadata and forwards to a sink. A nil Logger is
// usable and silent, so components can hold one unconditionally.
type Logger struct {
	sink Sink
}

func New(sink Sink) *Logger {
	if sink == nil {
		sink = NopSink{}
	}
	return &Logger{sink: sink}
}

func (l *Logger) Infof(format string, args ...any)  { l.emit(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.emit(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.emit(LevelError, format, args...) }
func (l *Logger) Criticalf(format string, args ...any) {
	l.emit(LevelCritical, format, args...)
}

func (l *Logger) emit(level Level, format string, args ...any) {
	if l == nil || l.sink == nil {
		return
	}
	rec := Record{
		Timestamp: time.Now(),
		Level:     level,
		Message:   fmt.Sprintf(format, args...),
	}
	// Skip emit and the public wrapper to land on the caller.
	if pc, file, line, ok := runtime.Caller(2); ok {
		rec.File = filepath.Base(file)
		rec.Line = line
		if fn := runtime.FuncForPC(pc); fn != nil {
			rec.Function = shortFuncName(fn.Name())
		}
	}
	l.sink.Emit(rec)
}

// shortFuncName trims the package path from a runtime function name,
// "github.com/x/y/pkg.(*T).Method" becomes "(*T).Method".
func shortFuncName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// NopSink drops every record.
type NopSink struct{}

func (NopSink) Emit(Record) {}

// WriterSink formats records to a writer, one line per record, guarded by a
// mutex so concurrent emitters do not interleave.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Emit(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s %-8s %s:%d %s: %s\n",
		rec.Timestamp.Format("2006-01-02T15:04:05.000"),
		rec.Level, rec.File, rec.Line, rec.Function, rec.Message)
}
