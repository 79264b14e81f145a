// Command cwasmjit is the thin CLI wrapper spec §6.4 describes: "not part
// of the core but listed for compatibility". It depends on the same
// collaborator boundary internal/wasm documents (binary/text .wasm/.wat
// decoding is out of scope for the core, spec §1), so run/test/explore
// accept the module already in the core's own JSON module-description
// format rather than raw .wasm bytes — wiring in a real decoder is the
// excluded parser collaborator's job.
package main

import (
	"fmt"
	"os"

	"github.com/cwasmjit/cwasmjit/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := cli.Execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if ec, ok := err.(cli.ExitCoder); ok {
			return ec.ExitCode()
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
