package emit

import (
	"sort"

	"github.com/cwasmjit/cwasmjit/internal/vcode"
)

// PCMapEntry records one native-code-offset-to-Wasm-bytecode-offset pair,
// used by the trap reporter (spec §3.4, §6.3) to translate a faulting PC
// back to source position.
type PCMapEntry struct {
	NativeOffset uint32
	WasmOffset   uint32
}

// Reloc is one direct-call site whose branch immediate could not be
// resolved until every function in the module has a final code offset;
// internal/compiler's linking pass patches these once the whole module's
// layout is known.
type Reloc struct {
	Offset    uint32 // byte offset of the B/BL instruction within Bytes
	FuncIndex uint32
	Link      bool // true: BL (call); false: B (tail call)
}

// Code is one function's emitted machine code plus the metadata the
// linker, trap reporter and disassembler need.
type Code struct {
	Bytes           []byte
	PCMap           []PCMapEntry
	Relocs          []Reloc
	FrameBytes      int
	ConstPoolOffset uint32 // byte offset where the literal pool begins
}

const wordBytes = 4

// emitter holds one function's cross-pass emission state. The first pass
// runs with measuring=true to learn each block's word offset (instruction
// encodings are fixed-width and their word count never depends on branch
// displacement, so one measuring pass is enough to make every forward and
// backward branch resolvable in the second, real pass) - this is the
// "two-pass layout" of spec §4.5.
type emitter struct {
	f *vcode.Function

	measuring   bool
	count       int
	words       []uint32
	pcmap       []PCMapEntry
	relocs      []Reloc
	blockOffset []int // word index (post-prologue) where block i begins

	calleeGPRs []vcode.RealReg
	calleeFPRs []vcode.RealReg
	spillWords int
	extraWords int
	frameBytes int

	bodyWords      int // body word count, measured without the prologue
	prologueWords  int
	constPoolWords int // word offset (from start of Bytes) where the literal pool begins
}

// Function emits the final AArch64 machine code for one register-allocated
// VCode function.
func Function(f *vcode.Function) (*Code, error) {
	e := &emitter{f: f}
	e.computeFrame()

	e.measuring = true
	e.blockOffset = make([]int, len(f.Blocks))
	e.count = 0
	for bi, blk := range f.Blocks {
		e.blockOffset[bi] = e.count
		for _, in := range blk.Insts {
			e.emitInst(in)
		}
		e.emitTerm(blk.Term, bi)
	}
	e.bodyWords = e.count

	e.measuring = false
	e.words = make([]uint32, 0, e.count+32)
	e.emitPrologue()
	e.prologueWords = len(e.words)
	e.constPoolWords = e.prologueWords + e.bodyWords
	for bi := range f.Blocks {
		e.blockOffset[bi] += e.prologueWords
	}
	for bi, blk := range f.Blocks {
		for _, in := range blk.Insts {
			e.recordPC(in.WasmOffset)
			e.emitInst(in)
		}
		e.emitTerm(blk.Term, bi)
	}

	constOff := len(e.words) * wordBytes
	bytes := make([]byte, constOff)
	for i, w := range e.words {
		putLE32(bytes[i*4:], w)
	}
	bytes = append(bytes, constBytes(f.ConstPool)...)

	return &Code{
		Bytes:           bytes,
		PCMap:           e.pcmap,
		Relocs:          e.relocs,
		FrameBytes:      e.frameBytes,
		ConstPoolOffset: uint32(constOff),
	}, nil
}

func putLE32(b []byte, w uint32) {
	b[0] = byte(w)
	b[1] = byte(w >> 8)
	b[2] = byte(w >> 16)
	b[3] = byte(w >> 24)
}

// constBytes packs the pool with every entry padded to 8 bytes, so a flat
// idx*8 byte offset (idx*2 words) locates any entry regardless of whether
// it holds an f32 (4 bytes) or f64 (8 bytes) literal.
func constBytes(pool []vcode.ConstPoolEntry) []byte {
	out := make([]byte, 0, len(pool)*8)
	for _, c := range pool {
		slot := make([]byte, 8)
		copy(slot, c.Bytes)
		out = append(out, slot...)
	}
	return out
}

func (e *emitter) recordPC(wasmOff uint32) {
	if e.measuring || wasmOff == 0 {
		return
	}
	e.pcmap = append(e.pcmap, PCMapEntry{NativeOffset: uint32(len(e.words)) * wordBytes, WasmOffset: wasmOff})
}

// put appends one instruction word in the real pass, or just counts it
// while measuring.
func (e *emitter) put(w uint32) {
	if e.measuring {
		e.count++
		return
	}
	e.words = append(e.words, w)
}

func (e *emitter) here() int { return len(e.words) }

// computeFrame decides which physical registers this function's prologue
// must save/restore: the allocator's ordinary callee-saved picks
// (CalleeSavedInt/Float, X25-X28/D8-D15) plus whichever ABI-cache
// registers (X19 context, X20 func table, X21/X22 memory base/size, X23
// extra-results, X24 indirect table) this function actually reads, since
// those live across the whole function body the same way a real
// callee-saved register would (spec §4.5's prologue/epilogue table).
func (e *emitter) computeFrame() {
	used := map[vcode.RealReg]bool{}
	for _, r := range e.f.Assignments {
		used[r] = true
	}
	cacheRegs := []vcode.RealReg{vcode.RegContext, vcode.RegFuncTbl, vcode.RegMemBase, vcode.RegMemSize, vcode.RegExtraRes, vcode.RegIndirect}
	gprs := append([]vcode.RealReg{}, e.f.CalleeSavedInt...)
	for _, r := range cacheRegs {
		if used[r] {
			gprs = append(gprs, r)
		}
	}
	sort.Slice(gprs, func(i, j int) bool { return gprs[i] < gprs[j] })
	e.calleeGPRs = gprs
	e.calleeFPRs = append([]vcode.RealReg{}, e.f.CalleeSavedFloat...)
	sort.Slice(e.calleeFPRs, func(i, j int) bool { return e.calleeFPRs[i] < e.calleeFPRs[j] })

	e.spillWords = e.f.NumSpillSlots
	e.extraWords = (e.f.ExtraResBufBytes + 7) / 8
	bytes := (e.spillWords + e.extraWords) * 8
	e.frameBytes = align16(bytes)
}

func align16(n int) int { return (n + 15) &^ 15 }

// prologue: push the frame record, push callee-saved GPRs/FPRs (paired
// where possible), reserve the spill+extra-results area, then load each
// cached context register this function uses (X20, X24, X21, X22) from
// the JITContext header X19 points at. The extra-results buffer pointer
// (X7) is copied into X23 by the lowered body itself (internal/lower's
// captureExtraResBuf), not here.
// The epilogue undoes exactly this, emitted inline at every return site
// by emitTerm (spec §4.5 keeps prologue/epilogue symmetric and explicit
// rather than routing every return through a shared tail block).
func (e *emitter) emitPrologue() {
	e.put(encodeLoadStorePairImm64(false, true, false, u32(vcode.RegZeroOrSP), u32(vcode.RegFP), u32(vcode.RegLR), -2))
	e.put(encodeAddSubImm(0, 0, 0, 0, u32(vcode.RegZeroOrSP), u32(vcode.RegFP), 1)) // mov x29, sp (add x29,sp,#0)
	e.pushGPRPairs(e.calleeGPRs)
	e.pushFPRs(e.calleeFPRs)
	if e.frameBytes > 0 {
		e.put(subSPImm(e.frameBytes))
	}
	for _, r := range e.calleeGPRs {
		var off uint32
		switch r {
		case vcode.RegFuncTbl:
			off = 0
		case vcode.RegIndirect:
			off = 8
		case vcode.RegMemBase:
			off = 16
		case vcode.RegMemSize:
			off = 24
		default:
			continue
		}
		e.put(encodeLoadStoreImm(3, 0, 0b01, off/8, u32(vcode.RegContext), u32(r))) // LDR r, [x19, #off]
	}
}

func (e *emitter) epilogue() {
	if e.frameBytes > 0 {
		e.put(addSPImm(e.frameBytes))
	}
	e.popFPRs(e.calleeFPRs)
	e.popGPRPairs(e.calleeGPRs)
	e.put(encodeLoadStorePairImm64(true, false, true, u32(vcode.RegZeroOrSP), u32(vcode.RegFP), u32(vcode.RegLR), 2))
	e.put(encodeRet())
}

func subSPImm(n int) uint32 {
	return encodeAddSubImm(1, 0, 0, uint32(n), u32(vcode.RegZeroOrSP), u32(vcode.RegZeroOrSP), 1)
}
func addSPImm(n int) uint32 {
	return encodeAddSubImm(0, 0, 0, uint32(n), u32(vcode.RegZeroOrSP), u32(vcode.RegZeroOrSP), 1)
}

// pushGPRPairs emits STP (pre-index, predecrement 16) for consecutive
// pairs, padding an odd final register by pairing it with X18 (the
// platform register, never otherwise used by this JIT); popGPRPairs
// reloads X18 from the same slot, so its value is preserved.
func (e *emitter) pushGPRPairs(regs []vcode.RealReg) {
	for i := 0; i < len(regs); i += 2 {
		r0 := regs[i]
		r1 := vcode.RealReg(18)
		if i+1 < len(regs) {
			r1 = regs[i+1]
		}
		e.put(encodeLoadStorePairImm64(false, true, false, u32(vcode.RegZeroOrSP), u32(r0), u32(r1), -2))
	}
}

func (e *emitter) popGPRPairs(regs []vcode.RealReg) {
	pairs := (len(regs) + 1) / 2
	for p := pairs - 1; p >= 0; p-- {
		i := p * 2
		r0 := regs[i]
		r1 := vcode.RealReg(18)
		if i+1 < len(regs) {
			r1 = regs[i+1]
		}
		e.put(encodeLoadStorePairImm64(true, false, true, u32(vcode.RegZeroOrSP), u32(r0), u32(r1), 2))
	}
}

func (e *emitter) pushFPRs(regs []vcode.RealReg) {
	for _, r := range regs {
		e.put(encodeLoadStoreImmPrePost(3, 1, 0b00, -8, true, u32(vcode.RegZeroOrSP), u32(r)))
	}
}

func (e *emitter) popFPRs(regs []vcode.RealReg) {
	for i := len(regs) - 1; i >= 0; i-- {
		e.put(encodeLoadStoreImmPrePost(3, 1, 0b01, 8, false, u32(vcode.RegZeroOrSP), u32(regs[i])))
	}
}

// extraResFrameOffset returns the byte offset above SP at which this
// function's shared extra-results scratch buffer begins: the spill area
// comes first (lowest addresses used by regalloc's own slot indexing),
// the extra-results region immediately above it.
func (e *emitter) extraResFrameOffset() int { return e.spillWords * 8 }

func (e *emitter) gp(v vcode.VReg) uint32  { return u32(e.f.Assignments[v]) }
func (e *emitter) cnd(c vcode.Cond) uint32 { return uint32(c) }
