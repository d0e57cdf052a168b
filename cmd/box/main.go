// Command box is both the runtime-side CLI and, under the box-init
// sentinel argv, the container-side child entry point: the clone
// primitive is a re-exec under SysProcAttr.Cloneflags rather than a
// raw clone(2) against a hand-rolled stack.
package main

import (
	"fmt"
	"os"

	"github.com/linyaps-box/box/internal/box/boxinit"
	"github.com/linyaps-box/box/internal/box/nsctl"
	"github.com/linyaps-box/box/internal/cli"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == nsctl.BoxInitArg {
		if err := boxinit.Main(); err != nil {
			fmt.Fprintln(os.Stderr, "box-init:", err)
			os.Exit(1)
		}
		return
	}
	os.Exit(cli.Execute())
}
