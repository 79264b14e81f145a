// Package cache implements the on-disk cached-module format of spec §6.3:
// a bit-exact, little-endian header/directory/code/pc-map/string-table
// layout, encoded and decoded with encoding/binary exactly as the
// teacher's own wazevo persistent-compilation-cache file
// (internal/engine/wazevo/engine_cache.go) does for the same purpose.
package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/cwasmjit/cwasmjit/internal/compiler"
)

const (
	magic      = "CWAS"
	version    = 1
	archAArch64 = 0
)

// FuncEntry is one function's directory entry (spec §6.3).
type FuncEntry struct {
	FuncIndex   uint32
	CodeOffset  uint32
	CodeLen     uint32
	EntryPoint  uint32
	PCMapOffset uint32
	PCMapLen    uint32
	Name        string
}

// File is the fully-decoded form of a cached module.
type File struct {
	Version    uint32
	TargetArch uint32
	Funcs      []FuncEntry
	Code       []byte // raw concatenated code bytes, offsets in Funcs are relative to this
	PCMap      []byte // raw concatenated (native_offset, wasm_offset) u32 pairs
}

const (
	headerSize     = 4 + 4 + 4 + 4 // magic, version, target_arch, num_funcs
	dirEntrySize   = 4 * 6
	pcMapPairSize  = 8
)

// Save encodes m (a compiled module) plus its function names into the
// on-disk format. Code and PC-map sections are written exactly as
// produced by the compiler; Load's round-trip only needs to reproduce
// behavior (spec §8.2 "Cached module round-trip"), not byte-identical
// re-emission, so no repacking beyond concatenation happens here.
func Save(m *compiler.CompiledModule) ([]byte, error) {
	var codeBuf, pcMapBuf, strTab bytes.Buffer
	entries := make([]FuncEntry, 0, len(m.Funcs))

	for _, f := range m.Funcs {
		if f.Unsupported {
			continue
		}
		strTab.WriteString(f.Meta.Name)
		strTab.WriteByte(0)

		codeOff := uint32(codeBuf.Len())
		// The function's code was already linked into one module-relative
		// block by the compiler; re-slice it back out by offset/len so the
		// cached file can stand alone without the runtime.CodeBlock.
		start, end := f.CodeOffset, f.CodeOffset+f.CodeLen
		fullCode := moduleCodeBytes(m)
		if end > len(fullCode) {
			return nil, fmt.Errorf("cache: func %d code range out of bounds", f.Index)
		}
		codeBuf.Write(fullCode[start:end])

		pcMapOff := uint32(pcMapBuf.Len())
		for _, e := range f.PCMap {
			binary.Write(&pcMapBuf, binary.LittleEndian, e.NativeOffset)
			binary.Write(&pcMapBuf, binary.LittleEndian, e.WasmOffset)
		}

		entries = append(entries, FuncEntry{
			FuncIndex: f.Index, CodeOffset: codeOff, CodeLen: uint32(f.CodeLen),
			EntryPoint: 0, PCMapOffset: pcMapOff, PCMapLen: uint32(len(f.PCMap) * pcMapPairSize),
		})
	}

	var out bytes.Buffer
	out.WriteString(magic)
	writeU32(&out, version)
	writeU32(&out, archAArch64)
	writeU32(&out, uint32(len(entries)))
	for _, e := range entries {
		writeU32(&out, e.FuncIndex)
		writeU32(&out, e.CodeOffset)
		writeU32(&out, e.CodeLen)
		writeU32(&out, e.EntryPoint)
		writeU32(&out, e.PCMapOffset)
		writeU32(&out, e.PCMapLen)
	}
	out.Write(codeBuf.Bytes())
	out.Write(pcMapBuf.Bytes())
	out.Write(strTab.Bytes())
	return out.Bytes(), nil
}

// moduleCodeBytes reconstructs the combined code blob's bytes from the
// finalized executable block for re-slicing by per-function offsets.
func moduleCodeBytes(m *compiler.CompiledModule) []byte {
	return m.Code.Bytes()
}

// Load decodes a cached-module file back into a File the embedder can
// feed to runtime.AllocateCodeBlock directly (spec §8.2's round-trip
// property: load(save(M)) behaves like M on any input, not necessarily
// byte-identical internal layout).
func Load(data []byte) (*File, error) {
	if len(data) < headerSize || string(data[:4]) != magic {
		return nil, fmt.Errorf("cache: bad magic")
	}
	r := bytes.NewReader(data[4:])
	var ver, arch, numFuncs uint32
	if err := binary.Read(r, binary.LittleEndian, &ver); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &arch); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &numFuncs); err != nil {
		return nil, err
	}
	if arch != archAArch64 {
		return nil, fmt.Errorf("cache: unsupported target_arch %d", arch)
	}

	entries := make([]FuncEntry, numFuncs)
	var maxCodeEnd, maxPCMapEnd uint32
	for i := range entries {
		var fe FuncEntry
		fields := []*uint32{&fe.FuncIndex, &fe.CodeOffset, &fe.CodeLen, &fe.EntryPoint, &fe.PCMapOffset, &fe.PCMapLen}
		for _, p := range fields {
			if err := binary.Read(r, binary.LittleEndian, p); err != nil {
				return nil, fmt.Errorf("cache: truncated directory: %w", err)
			}
		}
		entries[i] = fe
		if end := fe.CodeOffset + fe.CodeLen; end > maxCodeEnd {
			maxCodeEnd = end
		}
		if end := fe.PCMapOffset + fe.PCMapLen; end > maxPCMapEnd {
			maxPCMapEnd = end
		}
	}

	bodyOff := headerSize + int(numFuncs)*dirEntrySize
	body := data[bodyOff:]
	if len(body) < int(maxCodeEnd)+int(maxPCMapEnd) {
		return nil, fmt.Errorf("cache: truncated body")
	}
	code := body[:maxCodeEnd]
	pcMap := body[maxCodeEnd : maxCodeEnd+maxPCMapEnd]
	strTab := body[maxCodeEnd+maxPCMapEnd:]
	if bytes.Count(strTab, []byte{0}) < len(entries) {
		return nil, fmt.Errorf("cache: truncated string table")
	}

	for i := range entries {
		entries[i].Name = readCString(strTab, i)
	}

	return &File{Version: ver, TargetArch: arch, Funcs: entries, Code: code, PCMap: pcMap}, nil
}

// readCString reads the i-th NUL-terminated name in encounter order; the
// string table has exactly one entry per function, written in the same
// order Save walked m.Funcs.
func readCString(tab []byte, i int) string {
	off := 0
	for n := 0; n < i; n++ {
		for off < len(tab) && tab[off] != 0 {
			off++
		}
		off++ // skip the NUL
	}
	end := off
	for end < len(tab) && tab[end] != 0 {
		end++
	}
	if off > len(tab) {
		return ""
	}
	return string(tab[off:end])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
