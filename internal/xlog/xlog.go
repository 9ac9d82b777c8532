// Copyright 2024 The letin Authors
// This file is part of letin.

// Package xlog is the structured, leveled logger used by the VM entry point
// (package letin), cmd/letinvm and nlib/coreutil. All call sites pass a message plus alternating key/value pairs,
// e.g. xlog.Debug("force thunk", "fun", idx, "shared", shared).
package xlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level is a logging severity, ordered least to most severe.
type Level int

const (
	LvlDebug Level = iota
	LvlInfo
	LvlWarn
	LvlError
	LvlCrit
)

var levelNames = map[Level]string{
	LvlDebug: "DEBUG",
	LvlInfo:  "INFO",
	LvlWarn:  "WARN",
	LvlError: "ERROR",
	LvlCrit:  "CRIT",
}

func (l Level) String() string { return levelNames[l] }

// Logger writes leveled, key/value formatted records to an output stream.
// The zero value is not usable; use New or Root.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	color  bool
	minLvl Level
	ctx    []interface{} // bound key/value pairs applied to every record
}

// New creates a Logger writing to w. Color output is auto-detected when w is
// an *os.File attached to a terminal (mirroring the teacher's convention of
// wrapping stderr with go-colorable/go-isatty).
func New(w io.Writer) *Logger {
	color := false
	out := w
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		out = colorable.NewColorable(f)
	}
	return &Logger{out: out, color: color, minLvl: LvlDebug}
}

func toFile(w io.Writer) *os.File {
	if f, ok := w.(*os.File); ok {
		return f
	}
	return os.Stderr
}

var root = New(os.Stderr)

// Root returns the process-wide default logger.
func Root() *Logger { return root }

// SetLevel sets the minimum level that is emitted.
func (l *Logger) SetLevel(lvl Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLvl = lvl
}

// With returns a derived Logger that prepends ctx to every subsequent record,
// used to bind a thread-context or module name once instead of repeating it.
func (l *Logger) With(ctx ...interface{}) *Logger {
	return &Logger{out: l.out, color: l.color, minLvl: l.minLvl, ctx: append(append([]interface{}{}, l.ctx...), ctx...)}
}

func (l *Logger) log(lvl Level, msg string, ctx []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lvl < l.minLvl {
		return
	}
	ts := time.Now().Format("15:04:05.000")
	fmt.Fprintf(l.out, "%s [%s] %s", ts, lvl, msg)
	all := append(append([]interface{}{}, l.ctx...), ctx...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(l.out, " %v=%v", all[i], all[i+1])
	}
	if lvl == LvlCrit {
		fmt.Fprintf(l.out, " stack=%v", stack.Trace().TrimRuntime())
	}
	fmt.Fprintln(l.out)
}

func (l *Logger) Debug(msg string, ctx ...interface{}) { l.log(LvlDebug, msg, ctx) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.log(LvlInfo, msg, ctx) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.log(LvlWarn, msg, ctx) }
func (l *Logger) Error(msg string, ctx ...interface{}) { l.log(LvlError, msg, ctx) }
func (l *Logger) Crit(msg string, ctx ...interface{})  { l.log(LvlCrit, msg, ctx) }

// Package-level convenience wrappers over Root(), matching the call-site
// convention used throughout the teacher's tree (log.Debug(...), log.Warn(...)).
func Debug(msg string, ctx ...interface{}) { root.Debug(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { root.Info(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { root.Warn(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { root.Error(msg, ctx...) }
func Crit(msg string, ctx ...interface{})  { root.Crit(msg, ctx...) }
