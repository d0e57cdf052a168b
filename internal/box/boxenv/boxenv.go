// Package boxenv resolves the small set of environment variables the
// core reads, exactly once, at process start. Per the design note that
// "all globals ... are computed once from environment at process
// start", nothing in this package re-reads os.Getenv after Load runs.
package boxenv

import (
	"os"
	"strconv"
)

// Globals holds the environment-derived process-wide settings.
type Globals struct {
	// RuntimeDir is $XDG_RUNTIME_DIR, used to default the status directory.
	RuntimeDir string
	// LogLevel is LINYAPS_BOX_LOG_LEVEL, 0-7, default 7 (debug).
	LogLevel int
	// LogForceStderr is LINYAPS_BOX_LOG_FORCE_STDERR.
	LogForceStderr bool
	// TraceMe is LINYAPS_BOX_CONTAINER_PROCESS_TRACE_ME: the container
	// side process pauses for SIGUSR1 before proceeding.
	TraceMe bool
}

var globals Globals

// Load reads the environment once and stores the result for Get to
// return. It is called once per process: by the CLI root command's
// pre-run hook, and by boxinit.Main in the container-side child.
func Load() {
	globals = Globals{
		RuntimeDir:     os.Getenv("XDG_RUNTIME_DIR"),
		LogLevel:       7,
		LogForceStderr: os.Getenv("LINYAPS_BOX_LOG_FORCE_STDERR") != "",
		TraceMe:        os.Getenv("LINYAPS_BOX_CONTAINER_PROCESS_TRACE_ME") != "",
	}
	if v := os.Getenv("LINYAPS_BOX_LOG_LEVEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 7 {
			globals.LogLevel = n
		}
	}
}

// Get returns the process-wide globals snapshot taken by Load.
func Get() Globals { return globals }

// DefaultStatusDir returns $XDG_RUNTIME_DIR/linglong/box, the default
// status directory root used when --root is not given.
func DefaultStatusDir() string {
	if globals.RuntimeDir == "" {
		return "/run/linglong/box"
	}
	return globals.RuntimeDir + "/linglong/box"
}
