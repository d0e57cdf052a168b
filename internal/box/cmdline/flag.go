// Package cmdline registers box's global flags (--root, --log-level,
// --color, --debug, --cgroup-manager) so that each can also be set by environment
// variable, with the environment consulted only when the flag was
// left at its default on the command line.
package cmdline

import (
	"fmt"
	"os"
	"reflect"

	"github.com/spf13/cobra"
)

// EnvPrefix is prepended to every flag's env keys before lookup.
const EnvPrefix = "BOX_"

// Flag describes one registrable, optionally env-backed CLI flag.
type Flag struct {
	Value        interface{} // pointer to the bound variable
	DefaultValue interface{}
	Name         string
	ShortHand    string
	Usage        string
	EnvKeys      []string
}

// FlagValTypeErr reports a Value/DefaultValue type mismatch caught at
// registration time rather than via a reflection panic.
type FlagValTypeErr struct {
	name     string
	expected string
	found    string
}

func (e FlagValTypeErr) Error() string {
	return fmt.Sprintf("flag %q: expected %s, got %s", e.name, e.expected, e.found)
}

// Manager registers Flags against one or more commands and resolves
// environment overrides afterward.
type Manager struct {
	flags map[string]*Flag
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{flags: make(map[string]*Flag)}
}

// Register binds flag to every command in cmds.
func (m *Manager) Register(flag *Flag, cmds ...*cobra.Command) error {
	switch dv := flag.DefaultValue.(type) {
	case string:
		val, ok := flag.Value.(*string)
		if !ok {
			return FlagValTypeErr{flag.Name, "string", reflect.TypeOf(flag.Value).String()}
		}
		for _, c := range cmds {
			if flag.ShortHand != "" {
				c.PersistentFlags().StringVarP(val, flag.Name, flag.ShortHand, dv, flag.Usage)
			} else {
				c.PersistentFlags().StringVar(val, flag.Name, dv, flag.Usage)
			}
		}
	case bool:
		val, ok := flag.Value.(*bool)
		if !ok {
			return FlagValTypeErr{flag.Name, "bool", reflect.TypeOf(flag.Value).String()}
		}
		for _, c := range cmds {
			c.PersistentFlags().BoolVar(val, flag.Name, dv, flag.Usage)
		}
	case int:
		val, ok := flag.Value.(*int)
		if !ok {
			return FlagValTypeErr{flag.Name, "int", reflect.TypeOf(flag.Value).String()}
		}
		for _, c := range cmds {
			c.PersistentFlags().IntVar(val, flag.Name, dv, flag.Usage)
		}
	default:
		return fmt.Errorf("flag %s of type %T is not supported", flag.Name, flag.DefaultValue)
	}
	m.flags[flag.Name] = flag
	return nil
}

// ApplyEnv overrides every registered flag still at its default with
// the first set environment variable among its EnvKeys, prefixed by
// EnvPrefix.
func (m *Manager) ApplyEnv(cmd *cobra.Command) error {
	for _, flag := range m.flags {
		pf := cmd.PersistentFlags().Lookup(flag.Name)
		if pf == nil || pf.Changed {
			continue
		}
		for _, key := range flag.EnvKeys {
			val, ok := os.LookupEnv(EnvPrefix + key)
			if !ok {
				continue
			}
			if err := pf.Value.Set(val); err != nil {
				return fmt.Errorf("env %s%s for flag %s: %w", EnvPrefix, key, flag.Name, err)
			}
			break
		}
	}
	return nil
}
