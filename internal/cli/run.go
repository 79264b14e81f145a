package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cwasmjit/cwasmjit/internal/compiler"
	"github.com/cwasmjit/cwasmjit/internal/runtime"
)

func newRunCommand(stdout io.Writer) *cobra.Command {
	var invoke string
	var rawArgs []string
	var noJIT bool

	cmd := &cobra.Command{
		Use:   "run <module.json>",
		Short: "Compile a module and optionally invoke one of its exports",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, cmdArgs []string) error {
			mod, err := loadModule(cmdArgs[0])
			if err != nil {
				return newExitError(2, "%v", err)
			}

			cm, err := compiler.CompileModule(mod, nil, compiler.DefaultOptions())
			if err != nil {
				return newExitError(1, "compile: %v", err)
			}
			defer cm.Code.Release()

			if invoke == "" {
				fmt.Fprintf(stdout, "compiled %d function(s), %d bytes of code\n", len(cm.Funcs), cm.Code.Size())
				return nil
			}

			idx, err := exportedFunc(mod, invoke)
			if err != nil {
				return newExitError(2, "%v", err)
			}
			entry := cm.Context.FuncTable[idx]

			if noJIT {
				fmt.Fprintf(stdout, "%s: entry=0x%x (not invoked, --no-jit set)\n", invoke, entry)
				return nil
			}

			params, err := parseArgWords(rawArgs)
			if err != nil {
				return newExitError(2, "%v", err)
			}

			sig := mod.TypeOfFunc(idx)
			results, trap := runtime.Invoke(cm.Context, entry, len(sig.Results), params...)
			if trap != nil {
				fmt.Fprintf(stdout, "trap: %s: %s\n", trap.Kind, trap.Message)
				return newExitError(3, "%s trapped: %s", invoke, trap.Message)
			}
			fmt.Fprintf(stdout, "%s%v = %v\n", invoke, params, results)
			return nil
		},
	}

	cmd.Flags().StringVar(&invoke, "invoke", "", "name of the exported function to call")
	cmd.Flags().StringArrayVar(&rawArgs, "arg", nil, "one argument word (decimal or 0x-prefixed hex); repeatable")
	cmd.Flags().BoolVar(&noJIT, "no-jit", false, "compile only; never execute the emitted code")
	return cmd
}

// parseArgWords accepts each --arg verbatim as a 64-bit bit pattern:
// wasm's four value types all fit in one register-sized word (floats via
// their raw bit pattern), so the CLI never needs type-directed parsing.
func parseArgWords(raw []string) ([]uint64, error) {
	out := make([]uint64, len(raw))
	for i, s := range raw {
		v, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("--arg %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}
