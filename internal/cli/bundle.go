package cli

import (
	"encoding/json"
	"os"
	"path/filepath"

	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/opencontainers/runtime-tools/validate"

	"github.com/linyaps-box/box/internal/box/boxerr"
	"github.com/linyaps-box/box/internal/box/config"
)

// loadBundle reads configName (config.json, unless overridden) from
// bundlePath, runs it through the OCI bundle validator, and derives
// the immutable Container view. The OCI-JSON parse and the
// bundle-level validation happen here, in the CLI collaborator,
// exactly once; the core (package config) only ever sees the
// already-unmarshaled, already OCI-valid *specs.Spec and applies its
// own box-specific checks on top (duplicate namespaces, duplicate env
// keys, and the like, which runtime-tools/validate does not know
// about).
func loadBundle(bundlePath, configName string) (*config.Container, string, error) {
	abs, err := filepath.Abs(bundlePath)
	if err != nil {
		return nil, "", boxerr.Wrap(boxerr.Config, "resolve bundle path", err)
	}

	if configName == "" {
		configName = "config.json"
	}

	if configName == "config.json" {
		v, err := validate.NewValidatorFromPath(abs, false, "linux")
		if err != nil {
			return nil, "", boxerr.Wrap(boxerr.Config, "build bundle validator", err)
		}
		if err := v.CheckAll(); err != nil {
			return nil, "", boxerr.Wrap(boxerr.Config, "validate bundle", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(abs, configName))
	if err != nil {
		return nil, "", boxerr.Wrap(boxerr.Config, "read "+configName, err)
	}

	var s specs.Spec
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, "", boxerr.Wrap(boxerr.Config, "parse "+configName, err)
	}

	c, err := config.FromSpec(&s)
	if err != nil {
		return nil, "", err
	}
	return c, abs, nil
}
