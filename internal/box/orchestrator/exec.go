package orchestrator

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/linyaps-box/box/internal/box/binutil"
	"github.com/linyaps-box/box/internal/box/boxerr"
	"github.com/linyaps-box/box/internal/box/statusdir"
)

// ExecOptions describes a request to run an additional process inside
// an already-running container.
type ExecOptions struct {
	ID   string
	Args []string
	Env  []string
	Cwd  string
	// User is UID[:GID], overriding the identity the exec'd process
	// runs as. Empty means inherit nsenter's default (the target
	// namespace's root mapping).
	User string
}

// parseUser splits a UID[:GID] string into its nsenter --setuid and
// --setgid arguments. An empty GID half is allowed and means "UID
// only".
func parseUser(user string) (uid, gid string, err error) {
	uidPart, gidPart, hasGID := strings.Cut(user, ":")
	if _, err := strconv.ParseUint(uidPart, 10, 32); err != nil {
		return "", "", boxerr.Wrap(boxerr.Config, "parse user uid "+uidPart, err)
	}
	if hasGID {
		if _, err := strconv.ParseUint(gidPart, 10, 32); err != nil {
			return "", "", boxerr.Wrap(boxerr.Config, "parse user gid "+gidPart, err)
		}
		return uidPart, gidPart, nil
	}
	return uidPart, "", nil
}

// execNamespaces are the namespaces an exec'd process joins: mount,
// pid, and user.
var execNamespaces = []string{"mnt", "pid", "user"}

// Exec attaches a new process to a running container by delegating to
// the nsenter helper, which joins the target pid's listed namespaces
// before executing the requested command. box takes the helper path
// over a direct setns call since joining a PID namespace from a
// multithreaded Go runtime via direct setns doesn't behave like a
// freshly exec'd process: the thread that calls setns(2) on
// CLONE_NEWPID does not move its children's reaper into the target
// namespace the way nsenter's own exec does.
func Exec(dir *statusdir.Dir, opts ExecOptions) error {
	record, err := dir.Load(opts.ID)
	if err != nil {
		return err
	}
	if record.Phase != statusdir.PhaseRunning {
		return boxerr.New(boxerr.State, fmt.Sprintf("container %s is not running", opts.ID))
	}
	if record.Pid == 0 {
		return boxerr.New(boxerr.State, "container has no recorded init pid")
	}

	nsenterPath, err := binutil.FindBin("nsenter")
	if err != nil {
		return boxerr.Wrap(boxerr.Config, "nsenter not found", err)
	}

	args := []string{"--target", fmt.Sprintf("%d", record.Pid)}
	for _, ns := range execNamespaces {
		args = append(args, "--"+ns)
	}
	if opts.Cwd != "" {
		args = append(args, "--wd="+opts.Cwd)
	}
	if opts.User != "" {
		uid, gid, err := parseUser(opts.User)
		if err != nil {
			return err
		}
		args = append(args, "--setuid="+uid)
		if gid != "" {
			args = append(args, "--setgid="+gid)
		}
	}
	args = append(args, "--")
	args = append(args, opts.Args...)

	cmd := exec.Command(nsenterPath, args...)
	cmd.Env = opts.Env
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return boxerr.Wrap(boxerr.Io, "nsenter exec", err)
	}
	return nil
}
