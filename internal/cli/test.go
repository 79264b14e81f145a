package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwasmjit/cwasmjit/internal/compiler"
	"github.com/cwasmjit/cwasmjit/internal/runtime"
)

// testCase is one invoke-and-compare assertion against a compiled module,
// the CLI's own minimal stand-in for the teacher's WAST-derived spectest
// vectors (tests/spectest/spec_test.go): no text-format assertion
// directives to parse, just an already-decoded module plus a flat list of
// (invoke, args, want) triples.
type testCase struct {
	Invoke string   `json:"invoke"`
	Args   []uint64 `json:"args"`
	Want   []uint64 `json:"want"`
}

// testVector is the file newTestCommand reads: a module path plus the
// cases to run against it.
type testVector struct {
	Module string     `json:"module"`
	Cases  []testCase `json:"cases"`
}

// sameWords compares result words by value, treating a nil and an empty
// slice as equal (json.Unmarshal leaves an omitted "want" as nil, while
// runtime.Invoke always returns a non-nil, possibly zero-length slice).
func sameWords(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func newTestCommand(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <vector.json>",
		Short: "Compile a module and check a set of invoke/expected-result cases",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return newExitError(2, "read test vector: %v", err)
			}
			var tv testVector
			if err := json.Unmarshal(data, &tv); err != nil {
				return newExitError(2, "parse test vector: %v", err)
			}

			mod, err := loadModule(tv.Module)
			if err != nil {
				return newExitError(2, "%v", err)
			}
			cm, err := compiler.CompileModule(mod, nil, compiler.DefaultOptions())
			if err != nil {
				return newExitError(1, "compile: %v", err)
			}
			defer cm.Code.Release()

			failed := 0
			for i, c := range tv.Cases {
				idx, err := exportedFunc(mod, c.Invoke)
				if err != nil {
					fmt.Fprintf(stdout, "FAIL case %d (%s): %v\n", i, c.Invoke, err)
					failed++
					continue
				}
				got, trap := runtime.Invoke(cm.Context, cm.Context.FuncTable[idx], len(c.Want), c.Args...)
				switch {
				case trap != nil:
					fmt.Fprintf(stdout, "FAIL case %d (%s): trapped: %s\n", i, c.Invoke, trap.Message)
					failed++
				case !sameWords(got, c.Want):
					fmt.Fprintf(stdout, "FAIL case %d (%s): got %v, want %v\n", i, c.Invoke, got, c.Want)
					failed++
				default:
					fmt.Fprintf(stdout, "ok case %d (%s)\n", i, c.Invoke)
				}
			}

			fmt.Fprintf(stdout, "%d/%d cases passed\n", len(tv.Cases)-failed, len(tv.Cases))
			if failed > 0 {
				return newExitError(1, "%d case(s) failed", failed)
			}
			return nil
		},
	}
	return cmd
}
