package cli

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cwasmjit/cwasmjit/internal/emit"
	"github.com/cwasmjit/cwasmjit/internal/frontend"
	"github.com/cwasmjit/cwasmjit/internal/ir"
	"github.com/cwasmjit/cwasmjit/internal/lower"
	"github.com/cwasmjit/cwasmjit/internal/opt"
	"github.com/cwasmjit/cwasmjit/internal/regalloc"
	"github.com/cwasmjit/cwasmjit/internal/vcode"
)

// exploreStage names one point along the pipeline spec §2's diagram draws
// arrows between; explore stops there and dumps that stage's
// intermediate form instead of linking a whole module.
type exploreStage string

const (
	stageIR    exploreStage = "ir"
	stageOpt   exploreStage = "opt"
	stageVCode exploreStage = "vcode"
	stageMC    exploreStage = "mc"
)

func newExploreCommand(stdout io.Writer) *cobra.Command {
	var stage string
	var funcName string
	var optLevel int

	cmd := &cobra.Command{
		Use:   "explore <module.json>",
		Short: "Dump one function's intermediate form at a given pipeline stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			mod, err := loadModule(args[0])
			if err != nil {
				return newExitError(2, "%v", err)
			}
			if funcName == "" {
				return newExitError(2, "--func is required")
			}
			fn, idx, err := definedFunc(mod, funcName)
			if err != nil {
				return newExitError(2, "%v", err)
			}

			irFn, err := frontend.Translate(mod, fn, ir.SignatureID(idx+1))
			if err != nil {
				return newExitError(1, "translate: %v", err)
			}
			irFn.Index = idx
			irFn.Name = funcName

			if exploreStage(stage) == stageIR {
				dumpIR(stdout, irFn)
				return nil
			}

			opt.Optimize(irFn, opt.Level(optLevel))
			if exploreStage(stage) == stageOpt {
				dumpIR(stdout, irFn)
				return nil
			}

			vf, err := lower.Function(irFn)
			if err != nil {
				return newExitError(1, "lower: %v", err)
			}
			vf.Name, vf.Index = funcName, idx
			if exploreStage(stage) == stageVCode {
				dumpVCode(stdout, vf)
				return nil
			}

			regalloc.Allocate(vf)
			code, err := emit.Function(vf)
			if err != nil {
				return newExitError(1, "emit: %v", err)
			}
			if exploreStage(stage) != stageMC {
				return newExitError(2, "unknown --stage %q (want ir, opt, vcode, or mc)", stage)
			}
			dumpMC(stdout, code)
			return nil
		},
	}

	cmd.Flags().StringVar(&stage, "stage", string(stageMC), "pipeline stage to dump: ir, opt, vcode, or mc")
	cmd.Flags().StringVar(&funcName, "func", "", "exported function name to explore")
	cmd.Flags().IntVar(&optLevel, "opt-level", int(opt.O2), "optimizer level (0-3) for opt/vcode/mc stages")
	return cmd
}

func dumpIR(w io.Writer, f *ir.Function) {
	fmt.Fprintf(w, "function %s (sig %d)\n", f.Name, f.Sig.ID)
	for _, b := range f.Blocks() {
		fmt.Fprintf(w, "%s:\n", b)
		for _, in := range b.Instructions() {
			fmt.Fprintf(w, "  %s\n", in)
		}
		fmt.Fprintf(w, "  %s\n", termString(b))
	}
}

func termString(b *ir.BasicBlock) string {
	switch b.Terminator() {
	case ir.TermReturn:
		return fmt.Sprintf("return %v", b.ReturnValues())
	case ir.TermJump:
		return fmt.Sprintf("jump %s", b.Targets()[0])
	case ir.TermBrIf:
		return fmt.Sprintf("br_if %s, %s, %s", b.BrIfCond(), b.Targets()[0], b.Targets()[1])
	case ir.TermBrTable:
		return "br_table"
	case ir.TermUnreachable:
		return "unreachable"
	default:
		return "<no terminator>"
	}
}

func dumpVCode(w io.Writer, f *vcode.Function) {
	fmt.Fprintf(w, "function %s (%d spill slot(s))\n", f.Name, f.NumSpillSlots)
	for i, b := range f.Blocks {
		fmt.Fprintf(w, "block%d:\n", i)
		for _, in := range b.Insts {
			fmt.Fprintf(w, "  %s\n", in)
		}
		fmt.Fprintf(w, "  %s\n", vcodeTermString(b.Term))
	}
}

func vcodeTermString(t vcode.Terminator) string {
	switch t.Kind {
	case vcode.TermReturn:
		return "ret"
	case vcode.TermBranch:
		return fmt.Sprintf("b block%d", t.Targets[0])
	case vcode.TermBranchCmp:
		return fmt.Sprintf("cmp %s, %s; b.%s block%d else block%d", t.LHS, t.RHS, t.Cond, t.Targets[0], t.Targets[1])
	case vcode.TermBranchCmpImm:
		return fmt.Sprintf("cmp %s, #%d; b.%s block%d else block%d", t.LHS, t.Imm, t.Cond, t.Targets[0], t.Targets[1])
	case vcode.TermBranchZero:
		op := "cbz"
		if t.Nonzero {
			op = "cbnz"
		}
		return fmt.Sprintf("%s %s, block%d else block%d", op, t.LHS, t.Targets[0], t.Targets[1])
	case vcode.TermBrTable:
		return fmt.Sprintf("br_table %s, default=block%d", t.Index, t.Default)
	default:
		return "<no terminator>"
	}
}

func dumpMC(w io.Writer, code *emit.Code) {
	fmt.Fprintf(w, "%d bytes, %d reloc(s), %d pc-map entries\n", len(code.Bytes), len(code.Relocs), len(code.PCMap))
	for off := 0; off+4 <= len(code.Bytes); off += 4 {
		fmt.Fprintf(w, "%06x: %s\n", off, hex.EncodeToString(code.Bytes[off:off+4]))
	}
}
