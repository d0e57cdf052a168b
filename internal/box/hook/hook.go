// Package hook implements the hook scheduler: each hook phase runs
// strictly sequentially, every hook is fork/exec'd with its own env,
// and a non-zero exit or timeout is fatal.
package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"time"

	"github.com/linyaps-box/box/internal/box/boxerr"
	"github.com/linyaps-box/box/internal/box/config"
)

// State is the container state fed to each hook on stdin, matching
// the OCI runtime spec's hook-state JSON contract.
type State struct {
	OCIVersion  string            `json:"ociVersion"`
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	Pid         int               `json:"pid,omitempty"`
	Bundle      string            `json:"bundle"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// RunPhase executes every hook in hooks, in order, failing fast on the
// first error. state is marshaled once and piped to each hook's stdin.
func RunPhase(ctx context.Context, hooks []config.Hook, state State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return boxerr.Wrap(boxerr.Hook, "marshal hook state", err)
	}
	for _, h := range hooks {
		if err := runOne(ctx, h, payload); err != nil {
			return err
		}
	}
	return nil
}

func runOne(ctx context.Context, h config.Hook, state []byte) error {
	runCtx := ctx
	var cancel context.CancelFunc
	if h.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(h.Timeout)*time.Second)
		defer cancel()
	}

	args := h.Args
	if len(args) == 0 {
		args = []string{h.Path}
	}
	cmd := exec.CommandContext(runCtx, h.Path, args[1:]...)
	cmd.Env = h.Env
	cmd.Stdin = bytes.NewReader(state)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			timeout := time.Duration(h.Timeout) * time.Second
			return boxerr.New(boxerr.Hook, "hook "+h.Path+" timed out after "+timeout.String())
		}
		return boxerr.Wrap(boxerr.Hook, "hook "+h.Path+" failed: "+stderr.String(), err)
	}
	return nil
}
