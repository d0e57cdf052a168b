// Package boxlog is the runtime's leveled logger: a small set of
// call-site functions (Debugf/Verbosef/Infof/Warningf/Errorf/Fatalf)
// over a single process-wide level and optional color, matching the
// eight-level scheme named by the LINYAPS_BOX_LOG_LEVEL/
// LINYAPS_BOX_LOG_FORCE_STDERR environment variables.
package boxlog

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Level mirrors the eight syslog-style severities the environment
// variable LINYAPS_BOX_LOG_LEVEL selects between.
type Level int32

const (
	Fatal Level = iota
	Error
	Warning
	Log
	Info
	Verbose
	Debug2
	Debug
)

var (
	level       atomic.Int32
	forceStderr atomic.Bool
	pidNSID     string
)

func init() {
	level.Store(int32(Log))
	if id, err := os.Readlink("/proc/self/ns/pid"); err == nil {
		pidNSID = id
	}
}

// SetLevel sets the process-wide log level (0 fatal-only to 7 debug).
func SetLevel(l int, forceColor bool) {
	level.Store(int32(l))
	color.NoColor = !forceColor && !isTTY(os.Stderr)
}

// SetForceStderr records LINYAPS_BOX_LOG_FORCE_STDERR. Log output always
// goes to stderr, TTY or not, so the recorded value does not change
// where or whether anything is written.
func SetForceStderr(v bool) { forceStderr.Store(v) }

func isTTY(f *os.File) bool { return term.IsTerminal(int(f.Fd())) }

func enabled(l Level) bool { return int32(l) <= level.Load() }

func writef(l Level, prefix string, colorFn func(string, ...interface{}) string, format string, args ...interface{}) {
	if !enabled(l) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	line := prefix + msg
	if enabled(Debug) {
		_, file, lno, _ := runtime.Caller(2)
		line = fmt.Sprintf("%s [pidns:%s] %s:%d: %s", time.Now().Format(time.RFC3339Nano), pidNSID, file, lno, line)
	}
	if colorFn != nil {
		line = colorFn(line)
	}
	fmt.Fprint(os.Stderr, line)
}

func Fatalf(format string, args ...interface{}) {
	writef(Fatal, "FATAL:   ", color.RedString, format, args...)
	os.Exit(255)
}

func Errorf(format string, args ...interface{}) {
	writef(Error, "ERROR:   ", color.RedString, format, args...)
}

func Warningf(format string, args ...interface{}) {
	writef(Warning, "WARNING: ", color.YellowString, format, args...)
}

func Infof(format string, args ...interface{}) {
	writef(Info, "INFO:    ", nil, format, args...)
}

func Verbosef(format string, args ...interface{}) {
	writef(Verbose, "VERBOSE: ", nil, format, args...)
}

func Debugf(format string, args ...interface{}) {
	writef(Debug, "DEBUG:   ", color.CyanString, format, args...)
}
