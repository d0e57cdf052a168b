// Package binutil resolves the handful of external helper binaries box
// shells out to by name: each name is PATH-resolved, since box carries
// no configuration file for overriding helper locations.
package binutil

import (
	"fmt"
	"os/exec"
)

// FindBin returns the absolute path to the named helper binary.
func FindBin(name string) (string, error) {
	switch name {
	case "newuidmap", "newgidmap", "nsenter", "mount", "mknod":
		return exec.LookPath(name)
	default:
		return "", fmt.Errorf("executable name %q is not known to FindBin", name)
	}
}
