package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cwasmjit/cwasmjit/internal/ir"
	"github.com/cwasmjit/cwasmjit/internal/wasm"
)

func writeAddModule(t *testing.T) string {
	t.Helper()
	mod := wasm.Module{
		Name: "addmod",
		Functions: []wasm.Function{
			{
				Type: wasm.FuncType{Params: []ir.Type{ir.TypeI32, ir.TypeI32}, Results: []ir.Type{ir.TypeI32}},
				Body: []wasm.Op{
					{Kind: wasm.OpLocalGet, Index: 0},
					{Kind: wasm.OpLocalGet, Index: 1},
					{Kind: wasm.OpBinary, NumOp: wasm.NumOp{Op: ir.OpcodeIadd, Type: ir.TypeI32}},
				},
			},
		},
		Exports: []wasm.Export{{Name: "add", Kind: wasm.ImportKindFunc, Index: 0}},
	}
	data, err := json.Marshal(mod)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "add.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRunInvokesExportedFunction(t *testing.T) {
	path := writeAddModule(t)
	var stdout, stderr bytes.Buffer
	err := Execute([]string{"run", path, "--invoke", "add", "--arg", "2", "--arg", "3"}, &stdout, &stderr)
	require.NoError(t, err)
	require.Contains(t, stdout.String(), "= [5]")
}

func TestRunNoJITDoesNotExecute(t *testing.T) {
	path := writeAddModule(t)
	var stdout, stderr bytes.Buffer
	err := Execute([]string{"run", path, "--invoke", "add", "--no-jit"}, &stdout, &stderr)
	require.NoError(t, err)
	require.Contains(t, stdout.String(), "not invoked")
}

func TestRunUnknownExportIsExitError(t *testing.T) {
	path := writeAddModule(t)
	var stdout, stderr bytes.Buffer
	err := Execute([]string{"run", path, "--invoke", "missing"}, &stdout, &stderr)
	require.Error(t, err)

	ec, ok := err.(ExitCoder)
	require.True(t, ok, "error should implement ExitCoder")
	require.Equal(t, 2, ec.ExitCode())
}

func TestExploreDumpsIRStage(t *testing.T) {
	path := writeAddModule(t)
	var stdout, stderr bytes.Buffer
	err := Execute([]string{"explore", path, "--func", "add", "--stage", "ir"}, &stdout, &stderr)
	require.NoError(t, err)
	require.Contains(t, stdout.String(), "function add")
}

func TestExploreDumpsMCStageByDefault(t *testing.T) {
	path := writeAddModule(t)
	var stdout, stderr bytes.Buffer
	err := Execute([]string{"explore", path, "--func", "add"}, &stdout, &stderr)
	require.NoError(t, err)
	require.Contains(t, stdout.String(), "bytes,")
}

func TestTestCommandReportsPassAndFail(t *testing.T) {
	modPath := writeAddModule(t)
	tv := testVector{
		Module: modPath,
		Cases: []testCase{
			{Invoke: "add", Args: []uint64{2, 3}, Want: []uint64{5}},
			{Invoke: "add", Args: []uint64{1, 1}, Want: []uint64{9}},
		},
	}
	data, err := json.Marshal(tv)
	require.NoError(t, err)
	vecPath := filepath.Join(t.TempDir(), "vec.json")
	require.NoError(t, os.WriteFile(vecPath, data, 0o644))

	var stdout, stderr bytes.Buffer
	err = Execute([]string{"test", vecPath}, &stdout, &stderr)
	require.Error(t, err)
	require.Contains(t, stdout.String(), "ok case 0")
	require.Contains(t, stdout.String(), "FAIL case 1")
	require.Contains(t, stdout.String(), "1/2 cases passed")
}

func TestSameWordsTreatsNilAndEmptyAsEqual(t *testing.T) {
	require.True(t, sameWords(nil, []uint64{}))
	require.True(t, sameWords([]uint64{1, 2}, []uint64{1, 2}))
	require.False(t, sameWords([]uint64{1}, []uint64{2}))
}
