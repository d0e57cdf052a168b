package nsctl

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/linyaps-box/box/internal/box/boxerr"
)

// BoxInitArg is the sentinel argv[0] the re-executed binary checks for
// to know it should run the container-side child entry point
// (package boxinit) instead of the CLI's normal command dispatch.
const BoxInitArg = "box-init"

// LaunchSpec is everything the clone primitive needs to start the
// container-side child.
type LaunchSpec struct {
	Plan       *Plan
	SyncChild  *os.File // the child's sync-channel endpoint
	ConfigPipe *os.File // read end of the config transport pipe
	Stdin, Stdout, Stderr *os.File
}

// Launch starts the container-side child process. Rather than a raw
// clone(2) call against a manually allocated stack (a C-specific
// technique), it re-executes the current binary under the box-init
// sentinel argv with SysProcAttr.Cloneflags set to the namespace
// bitset composed by BuildPlan. The kernel's clone(2) is invoked by
// the Go runtime's exec path exactly once, before any namespace-aware
// code runs in the child, so the child enters its namespaces
// immediately on return.
func Launch(spec LaunchSpec) (*exec.Cmd, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, boxerr.Wrap(boxerr.Io, "resolve self executable", err)
	}

	cmd := exec.Command(self, BoxInitArg)
	cmd.Stdin = spec.Stdin
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	cmd.ExtraFiles = []*os.File{spec.SyncChild, spec.ConfigPipe}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: uintptr(spec.Plan.CloneFlags),
		Pdeathsig:  syscall.SIGKILL,
	}
	if err := cmd.Start(); err != nil {
		return nil, boxerr.Wrap(boxerr.Io, "clone container-side process", err)
	}
	return cmd, nil
}
