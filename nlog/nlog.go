// Package nlog is the engine's ambient logger: leveled, timestamped,
// safe for concurrent use. Adapted from aistore's cmn/nlog — same
// severity levels and call shape (Infof/Warningf/Errorf, depth-aware
// variants) — but without that package's file-rotation machinery, which
// belongs to a long-running daemon and not to an embeddable library: this
// core writes to an io.Writer the host process owns (default os.Stderr)
// and never touches a file on its own.
package nlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type severity int32

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

func (s severity) tag() string {
	switch s {
	case sevWarn:
		return "W"
	case sevErr:
		return "E"
	default:
		return "I"
	}
}

var (
	mu      sync.Mutex
	out     io.Writer = os.Stderr
	level   atomic.Int32
	flushed atomic.Int64
)

// Level gates what gets written: only severities >= Level are emitted.
// Default is sevInfo (everything).
func SetLevel(warnAndAbove bool) {
	if warnAndAbove {
		level.Store(int32(sevWarn))
	} else {
		level.Store(int32(sevInfo))
	}
}

// SetOutput redirects log output; tests use this to capture lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	out = w
	mu.Unlock()
}

func log(sev severity, depth int, format string, args ...any) {
	if severity(level.Load()) > sev {
		return
	}
	_ = depth // reserved: caller-frame annotation, unused without runtime.Caller wiring
	msg := format
	if format == "" {
		msg = fmt.Sprint(args...)
	} else {
		msg = fmt.Sprintf(format, args...)
	}
	now := time.Now().Format("15:04:05.000000")
	mu.Lock()
	fmt.Fprintf(out, "%s %s %s\n", sev.tag(), now, msg)
	mu.Unlock()
	flushed.Add(1)
}

func Infof(format string, args ...any)    { log(sevInfo, 0, format, args...) }
func Infoln(args ...any)                  { log(sevInfo, 0, "", args...) }
func InfoDepth(depth int, args ...any)    { log(sevInfo, depth, "", args...) }
func Warningf(format string, args ...any) { log(sevWarn, 0, format, args...) }
func Warningln(args ...any)               { log(sevWarn, 0, "", args...) }
func Errorf(format string, args ...any)   { log(sevErr, 0, format, args...) }
func Errorln(args ...any)                 { log(sevErr, 0, "", args...) }
func ErrorDepth(depth int, args ...any)   { log(sevErr, depth, "", args...) }

// Flush is a no-op retained for API parity with the teacher's nlog — a
// bare io.Writer has nothing to buffer — but callers that built muscle
// memory around "flush before exit" can still call it safely.
func Flush(...bool) {}

// Flushed reports how many lines have been written, for a caller that
// wants to know something was logged without capturing exact text.
func Flushed() int64 { return flushed.Load() }
