package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cwasmjit/cwasmjit/internal/compiler"
	"github.com/cwasmjit/cwasmjit/internal/emit"
	"github.com/cwasmjit/cwasmjit/internal/runtime"
)

func newFixtureModule(t *testing.T) *compiler.CompiledModule {
	t.Helper()
	code := []byte{0x1f, 0x20, 0x03, 0xd5, 0xc0, 0x03, 0x5f, 0xd6} // nop; ret

	block, err := runtime.AllocateCodeBlock(len(code))
	require.NoError(t, err)
	t.Cleanup(func() { _ = block.Release() })
	require.NoError(t, block.Finalize(code))

	return &compiler.CompiledModule{
		Code: block,
		Funcs: []compiler.CompiledFunction{
			{
				Index:      0,
				Meta:       compiler.FuncMeta{WasmFuncIdx: 0, Name: "add"},
				CodeOffset: 0,
				CodeLen:    len(code),
				PCMap: []emit.PCMapEntry{
					{NativeOffset: 0, WasmOffset: 0},
					{NativeOffset: 4, WasmOffset: 3},
				},
			},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := newFixtureModule(t)

	data, err := Save(m)
	require.NoError(t, err)
	require.Equal(t, "CWAS", string(data[:4]))

	f, err := Load(data)
	require.NoError(t, err)
	require.EqualValues(t, version, f.Version)
	require.Len(t, f.Funcs, 1)

	fe := f.Funcs[0]
	require.Zero(t, fe.FuncIndex)
	require.Equal(t, "add", fe.Name)

	wantCode := m.Code.Bytes()[:8]
	gotCode := f.Code[fe.CodeOffset : fe.CodeOffset+fe.CodeLen]
	require.Equal(t, wantCode, gotCode)
	require.EqualValues(t, 16, fe.PCMapLen) // 2 entries * 8 bytes
}

func TestLoadRejectsBadMagic(t *testing.T) {
	_, err := Load([]byte("NOPE0000000000000000"))
	require.Error(t, err)
}

func TestLoadRejectsTruncatedDirectory(t *testing.T) {
	m := newFixtureModule(t)
	data, err := Save(m)
	require.NoError(t, err)

	_, err = Load(data[:len(data)-4])
	require.Error(t, err)
}

func TestLoadRejectsUnsupportedArch(t *testing.T) {
	m := newFixtureModule(t)
	data, err := Save(m)
	require.NoError(t, err)

	// target_arch is the 4 bytes right after magic+version.
	corrupt := append([]byte(nil), data...)
	corrupt[8] = 0xff
	_, err = Load(corrupt)
	require.Error(t, err)
}
