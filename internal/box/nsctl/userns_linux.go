package nsctl

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// IsInsideUserNamespace reports whether pid is already running inside
// a user namespace, by checking whether its uid_map's single-range
// size covers the full 32-bit space (host namespace) or not.
func IsInsideUserNamespace(pid int) bool {
	r, err := os.Open(fmt.Sprintf("/proc/%d/uid_map", pid))
	if err != nil {
		return false
	}
	defer r.Close()

	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return false
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) < 3 {
		return false
	}
	size, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return false
	}
	return uint32(size) != ^uint32(0)
}
