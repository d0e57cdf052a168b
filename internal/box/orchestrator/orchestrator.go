// Package orchestrator drives the runtime-side half of the Creating →
// Created → Running → Stopped state machine, wiring
// together the namespace controller, sync channel, hook scheduler,
// status directory, and supervisor for the "run" and "exec" entry
// points.
package orchestrator

import (
	"context"
	"encoding/gob"
	"os"
	"time"

	"github.com/linyaps-box/box/internal/box/boxerr"
	"github.com/linyaps-box/box/internal/box/boxinit"
	"github.com/linyaps-box/box/internal/box/boxlog"
	"github.com/linyaps-box/box/internal/box/cgroup"
	"github.com/linyaps-box/box/internal/box/config"
	"github.com/linyaps-box/box/internal/box/hook"
	"github.com/linyaps-box/box/internal/box/nsctl"
	"github.com/linyaps-box/box/internal/box/pivot"
	"github.com/linyaps-box/box/internal/box/statusdir"
	"github.com/linyaps-box/box/internal/box/supervisor"
	"github.com/linyaps-box/box/internal/box/syncchan"
)

// RunOptions are the inputs to Run beyond the parsed container config.
type RunOptions struct {
	ID            string
	BundlePath    string
	StatusRoot    string
	Detach        bool
	CgroupManager string
}

// Run executes the full parent-side run flow and
// blocks until the container exits (unless Detach is set, in which
// case it returns once the container reaches Running).
func Run(c *config.Container, opts RunOptions) (supervisor.ExitStatus, error) {
	if _, err := cgroup.New(opts.CgroupManager); err != nil {
		return supervisor.ExitStatus{}, err
	}

	dir, err := statusdir.Open(opts.StatusRoot)
	if err != nil {
		return supervisor.ExitStatus{}, err
	}

	record := statusdir.Record{
		ID:          opts.ID,
		Phase:       statusdir.PhaseCreating,
		Bundle:      opts.BundlePath,
		Created:     time.Now(),
		Annotations: c.Annotations,
	}
	if err := dir.Save(record); err != nil {
		return supervisor.ExitStatus{}, err
	}

	pair, err := syncchan.New()
	if err != nil {
		return supervisor.ExitStatus{}, err
	}

	configPair, err := unixPipe()
	if err != nil {
		return supervisor.ExitStatus{}, err
	}

	var hostPTY *pivot.HostPTY
	wantPTY := c.Process.Terminal
	if wantPTY {
		hostPTY, err = pivot.AllocatePTY()
		if err != nil {
			return supervisor.ExitStatus{}, err
		}
	}

	plan, err := nsctl.BuildPlan(c.Namespaces)
	if err != nil {
		return supervisor.ExitStatus{}, err
	}

	spec := nsctl.LaunchSpec{
		Plan:       plan,
		SyncChild:  pair.Child,
		ConfigPipe: configPair.read,
	}
	if wantPTY {
		spec.Stdin, spec.Stdout, spec.Stderr = hostPTY.Slave, hostPTY.Slave, hostPTY.Slave
	} else {
		spec.Stdin, spec.Stdout, spec.Stderr = os.Stdin, os.Stdout, os.Stderr
	}

	cmd, err := nsctl.Launch(spec)
	if err != nil {
		return supervisor.ExitStatus{}, err
	}
	pair.Child.Close()
	configPair.read.Close()

	go sendConfig(configPair.write, c, opts, wantPTY)

	record.Phase = statusdir.PhaseCreated
	record.Pid = cmd.Process.Pid
	if err := dir.Save(record); err != nil {
		return supervisor.ExitStatus{}, err
	}

	endpoint, err := syncchan.NewEndpoint(pair.Parent)
	if err != nil {
		return supervisor.ExitStatus{}, err
	}
	defer endpoint.Close()

	err = runParentProtocol(endpoint, c, opts, cmd.Process.Pid, wantPTY, hostPTY)
	if wantPTY {
		hostPTY.Slave.Close()
	}
	if err != nil {
		return supervisor.ExitStatus{}, err
	}

	record.Phase = statusdir.PhaseRunning
	if err := dir.Save(record); err != nil {
		boxlog.Warningf("update status to running: %v", err)
	}

	if opts.Detach {
		return supervisor.ExitStatus{}, nil
	}

	status, err := superviseAndReap(cmd.Process.Pid, hostPTY)
	if err != nil {
		return status, err
	}

	record.Phase = statusdir.PhaseStopped
	code := status.OCICode()
	record.ExitCode = &code
	if err := dir.Save(record); err != nil {
		boxlog.Warningf("update status to stopped: %v", err)
	}

	if err := hook.RunPhase(context.Background(), c.Hooks.Poststop, hook.State{
		OCIVersion: c.OCIVersion, ID: opts.ID, Status: "stopped", Bundle: opts.BundlePath, Annotations: c.Annotations,
	}); err != nil {
		boxlog.Errorf("poststop hook: %v", err)
	}
	if err := dir.Remove(opts.ID); err != nil {
		boxlog.Warningf("remove status record: %v", err)
	}

	return status, nil
}

// runParentProtocol drives steps 5-9 of the parent-side run flow:
// ID-map installation, prestart/createRuntime/poststart hooks, and the
// wait for the child to exec (orderly sync-socket close).
func runParentProtocol(endpoint *syncchan.Endpoint, c *config.Container, opts RunOptions, childPid int, wantPTY bool, hostPTY *pivot.HostPTY) error {
	if err := endpoint.Expect(syncchan.RequestConfigureNamespace); err != nil {
		return err
	}
	if len(c.UIDMappings) > 0 {
		if err := nsctl.InstallUIDMap(childPid, c.UIDMappings); err != nil {
			return err
		}
	}
	if len(c.GIDMappings) > 0 {
		if err := nsctl.InstallGIDMap(childPid, c.GIDMappings); err != nil {
			return err
		}
	}
	if err := endpoint.Send(syncchan.NamespaceConfigured); err != nil {
		return err
	}

	if wantPTY {
		if err := pivot.SendFD(endpoint.File(), int(hostPTY.Slave.Fd())); err != nil {
			return err
		}
	}

	state := hook.State{OCIVersion: c.OCIVersion, ID: opts.ID, Pid: childPid, Status: "creating", Bundle: opts.BundlePath, Annotations: c.Annotations}

	if err := hook.RunPhase(context.Background(), c.Hooks.Prestart, state); err != nil {
		return err
	}

	if c.Hooks.HasCreateRuntime() {
		if err := endpoint.Expect(syncchan.RequestCreateRuntimeHooks); err != nil {
			return err
		}
		if err := hook.RunPhase(context.Background(), c.Hooks.CreateRuntime, state); err != nil {
			return err
		}
		if err := endpoint.Send(syncchan.CreateRuntimeHooksExecuted); err != nil {
			return err
		}
	}

	if err := endpoint.Expect(syncchan.CreateContainerHooksExecuted); err != nil {
		return err
	}

	if c.Hooks.HasStartContainer() {
		if err := endpoint.Expect(syncchan.StartContainerHooksExecuted); err != nil {
			return err
		}
	}

	if err := endpoint.WaitClose(); err != nil {
		return err
	}

	return hook.RunPhase(context.Background(), c.Hooks.Poststart, state)
}

func superviseAndReap(pid int, hostPTY *pivot.HostPTY) (supervisor.ExitStatus, error) {
	stop := make(chan struct{})
	var outputDone <-chan error
	if hostPTY != nil {
		console, done, err := supervisor.AttachMaster(hostPTY.Master)
		if err != nil {
			return supervisor.ExitStatus{}, err
		}
		outputDone = done
		defer console.Restore()
		supervisor.ResizeFromHost(hostPTY.Master)
		go supervisor.ForwardSignals(pid, func() { supervisor.ResizeFromHost(hostPTY.Master) }, stop)
	} else {
		go supervisor.ForwardSignals(pid, nil, stop)
	}
	status, err := supervisor.WaitInit(pid)
	close(stop)
	if outputDone != nil {
		<-outputDone
	}
	return status, err
}

type pipePair struct{ read, write *os.File }

func unixPipe() (pipePair, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return pipePair{}, boxerr.Wrap(boxerr.Io, "create config pipe", err)
	}
	return pipePair{read: r, write: w}, nil
}

func sendConfig(w *os.File, c *config.Container, opts RunOptions, wantPTY bool) {
	defer w.Close()
	payload := boxinit.Payload{Container: *c, BundlePath: opts.BundlePath, WantPTY: wantPTY}
	if err := gob.NewEncoder(w).Encode(payload); err != nil {
		boxlog.Errorf("send container configuration to child: %v", err)
	}
}
