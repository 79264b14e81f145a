// Package cli implements the cwasmjit command-line wrapper (spec §6.4): a
// thin dispatcher over the compiler core with three subcommands (run,
// test, explore), in the same "core does the work, main just wires
// stdout/stderr" shape as the teacher's cmd/wazero main.go. Unlike
// cmd/wazero's hand-rolled flag parsing, this tool's three subcommands
// each carry their own flag set, so it reaches for
// github.com/spf13/cobra/pflag rather than writing a one-off parser.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ExitCoder lets a returned error carry a specific process exit code, the
// way wazero's cmd/wazero maps a RuntimeError's ExitCode() to os.Exit.
type ExitCoder interface {
	error
	ExitCode() int
}

type exitError struct {
	err  error
	code int
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) ExitCode() int { return e.code }

func newExitError(code int, format string, a ...interface{}) error {
	return &exitError{err: fmt.Errorf(format, a...), code: code}
}

// Execute parses args against the root command and runs whichever
// subcommand matched, writing ordinary output to stdout and diagnostics to
// stderr.
func Execute(args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

func newRootCommand(stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "cwasmjit",
		Short:         "AArch64 WebAssembly JIT compiler and harness",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCommand(stdout))
	root.AddCommand(newTestCommand(stdout))
	root.AddCommand(newExploreCommand(stdout))
	return root
}
