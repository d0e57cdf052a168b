package nsctl

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/linyaps-box/box/internal/box/binutil"
	"github.com/linyaps-box/box/internal/box/boxerr"
	"github.com/linyaps-box/box/internal/box/config"
)

// InstallUIDMap installs the UID mapping for pid. A single mapping is
// first written directly to /proc/<pid>/uid_map; more than one mapping,
// or a failed direct write, goes through newuidmap (needed to map
// ranges the caller doesn't itself own).
func InstallUIDMap(pid int, mappings []config.IDMapping) error {
	return installMap(pid, mappings, "newuidmap", "/proc/%d/uid_map")
}

// InstallGIDMap installs the GID mapping for pid, the same way
// InstallUIDMap does with newgidmap. Neither this function nor the
// container-side child writes /proc/<pid>/setgroups; when the direct
// gid_map write fails, newgidmap is used.
func InstallGIDMap(pid int, mappings []config.IDMapping) error {
	return installMap(pid, mappings, "newgidmap", "/proc/%d/gid_map")
}

func installMap(pid int, mappings []config.IDMapping, helper, procFmt string) error {
	if len(mappings) == 0 {
		return nil
	}
	if len(mappings) == 1 {
		m := mappings[0]
		path := fmt.Sprintf(procFmt, pid)
		line := fmt.Sprintf("%d %d %d", m.ContainerID, m.HostID, m.Size)
		if err := os.WriteFile(path, []byte(line), 0); err == nil {
			return nil
		}
		// Fall through to the helper binary: a direct write can fail
		// when the caller isn't privileged enough even for a 1:1 map
		// (e.g. CAP_SETUID is missing but newuidmap is setuid-root).
	}

	helperPath, err := binutil.FindBin(helper)
	if err != nil {
		return boxerr.Wrap(boxerr.Config, helper+" not found", err)
	}

	args := []string{strconv.Itoa(pid)}
	for _, m := range mappings {
		args = append(args, strconv.FormatUint(uint64(m.ContainerID), 10),
			strconv.FormatUint(uint64(m.HostID), 10),
			strconv.FormatUint(uint64(m.Size), 10))
	}
	cmd := exec.Command(helperPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return boxerr.Wrap(boxerr.Io, fmt.Sprintf("%s failed: %s", helper, string(out)), err)
	}
	return nil
}
