// diag/diag.go
package diag

import (
	"fmt"
	"io"
	"sync/atomic"

	"reactor-sys-go/guard"
)

// Level is an ordinal log severity.
type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Sink serializes leveled diagnostics from every task onto one output.
// The guard is acquired with an unbounded wait: diagnostics are never
// silently dropped under contention. If the sink was built without a
// guard it degrades to unsynchronized best-effort writes and says so
// once.
type Sink struct {
	cell     *guard.Cell[io.Writer]
	fallback io.Writer
	min      Level
	warned   atomic.Bool
}

// New returns a sink writing to w. Messages below min are discarded
// before the guard is touched.
func New(w io.Writer, min Level) *Sink {
	return &Sink{cell: guard.NewCell[io.Writer](w), min: min}
}

// NewUnguarded returns a degraded sink with no serialization. Used when
// the guard cannot be created at process start; the first write reports
// the degradation.
func NewUnguarded(w io.Writer, min Level) *Sink {
	return &Sink{fallback: w, min: min}
}

// Log writes one line with a level prefix, e.g. "[INFO] message".
func (s *Sink) Log(level Level, msg string) {
	if level < s.min {
		return
	}
	if s.cell == nil {
		if s.fallback == nil {
			return
		}
		if s.warned.CompareAndSwap(false, true) {
			io.WriteString(s.fallback, "[WARNING] diag: no serial guard, output is unsynchronized\n")
		}
		io.WriteString(s.fallback, "["+level.String()+"] "+msg+"\n")
		return
	}
	s.cell.AcquireBlocking()
	defer s.cell.Release()
	io.WriteString(*s.cell.Value(), "["+level.String()+"] "+msg+"\n")
}

// Logf is Log with printf formatting.
func (s *Sink) Logf(level Level, format string, args ...any) {
	if level < s.min {
		return
	}
	s.Log(level, fmt.Sprintf(format, args...))
}

func (s *Sink) Debugf(format string, args ...any)   { s.Logf(LevelDebug, format, args...) }
func (s *Sink) Infof(format string, args ...any)    { s.Logf(LevelInfo, format, args...) }
func (s *Sink) Warningf(format string, args ...any) { s.Logf(LevelWarning, format, args...) }
func (s *Sink) Errorf(format string, args ...any)   { s.Logf(LevelError, format, args...) }
