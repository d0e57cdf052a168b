// Package cli wires the box command tree together with cobra/pflag:
// a root command carrying the global persistent flags, and one
// subcommand per OCI-runtime verb (create/start/run/exec/kill/delete/
// list/state).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/linyaps-box/box/internal/box/boxenv"
	"github.com/linyaps-box/box/internal/box/boxlog"
	"github.com/linyaps-box/box/internal/box/cmdline"
)

var (
	rootDir       string
	logLevel      int
	forceColor    bool
	debug         bool
	cgroupManager string
)

// New builds the root command and attaches every subcommand.
func New() *cobra.Command {
	root := &cobra.Command{
		Use:           "box",
		Short:         "box runs OCI bundles as rootless desktop application sandboxes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			boxenv.Load()
			if debug {
				logLevel = 7
			}
			boxlog.SetLevel(logLevel, forceColor)
			boxlog.SetForceStderr(boxenv.Get().LogForceStderr)
			return nil
		},
	}

	flags := cmdline.NewManager()
	registrations := []*cmdline.Flag{
		{Value: &rootDir, DefaultValue: boxenv.DefaultStatusDir(), Name: "root", Usage: "status directory root", EnvKeys: []string{"ROOT"}},
		{Value: &logLevel, DefaultValue: 5, Name: "log-level", Usage: "log verbosity, 0 (fatal) to 7 (debug)", EnvKeys: []string{"LOG_LEVEL"}},
		{Value: &forceColor, DefaultValue: false, Name: "color", Usage: "force colored log output", EnvKeys: []string{"COLOR"}},
		{Value: &debug, DefaultValue: false, Name: "debug", Usage: "shorthand for --log-level=7", EnvKeys: []string{"DEBUG"}},
		{Value: &cgroupManager, DefaultValue: "disabled", Name: "cgroup-manager", Usage: "cgroup backend: disabled, cgroupfs, or systemd", EnvKeys: []string{"CGROUP_MANAGER"}},
	}
	for _, f := range registrations {
		if err := flags.Register(f, root); err != nil {
			panic(err)
		}
	}
	preRun := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := flags.ApplyEnv(root); err != nil {
			return err
		}
		return preRun(cmd, args)
	}

	root.AddCommand(
		newCreateCmd(),
		newStartCmd(),
		newRunCmd(),
		newExecCmd(),
		newKillCmd(),
		newDeleteCmd(),
		newListCmd(),
		newStateCmd(),
	)
	return root
}

// Execute runs the root command and returns a process exit code.
func Execute() int {
	err := New().Execute()
	if err == nil {
		return 0
	}
	if code, ok := err.(exitCodeError); ok {
		return int(code)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return 1
}
