package vcode

// Function is one compiled Wasm function's VCode form: ordered blocks plus
// the frame/call metadata the allocator and emitter both need (spec §3.2).
type Function struct {
	Name   string
	Index  uint32
	Blocks []*Block

	// ParamRegs/ResultRegs are the vregs holding the incoming parameters
	// (already placed per the ABI by the lowerer's entry sequence) and the
	// vregs the Return terminator(s) consume.
	ParamRegs  []VReg
	ResultRegs []VReg

	nextVRegID [NumRegClass]uint32

	// Populated by the register allocator.
	NumSpillSlots      int
	CalleeSavedInt     []RealReg
	CalleeSavedFloat   []RealReg
	// NeedsExtraResBuf marks that this function itself returns more than two
	// values of some class: the lowerer's captureExtraResBuf copies the
	// caller-supplied buffer pointer (X7) into RegExtraRes (spec §4.5's
	// extra-results convention).
	NeedsExtraResBuf bool
	// ExtraResBufBytes is the largest extra-results buffer this function's
	// own call sites need to receive overflow results from a callee; the
	// emitter reserves this many bytes once in the frame (above the spill
	// area) and every call site computes its address via
	// OpExtraResBufAddr, reusing the same region since calls execute
	// sequentially.
	ExtraResBufBytes int
	Assignments      map[VReg]RealReg // one entry per register-resident vreg post-allocation; spilled vregs have no entry
	SpillOnly        map[uint32]bool  // vregs the allocator decided to keep resident in a slot across their whole range

	// ConstPool holds literal-pool entries the lowerer requested via
	// LoadConst; the emitter appends these after the code (spec §4.5).
	ConstPool []ConstPoolEntry
}

// ConstPoolEntry is one per-function literal-pool slot.
type ConstPoolEntry struct {
	Bytes []byte // 8 or 16 bytes, 16-byte aligned pool
}

// NewFunction allocates an empty VCode function.
func NewFunction(name string, index uint32) *Function {
	return &Function{Name: name, Index: index, Assignments: map[VReg]RealReg{}, SpillOnly: map[uint32]bool{}}
}

// NewVReg allocates a fresh virtual register of the given class.
func (f *Function) NewVReg(c RegClass) VReg {
	id := f.nextVRegID[c]
	f.nextVRegID[c]++
	return VReg{ID: id, Class: c}
}

// NumVRegs returns how many vregs of class c have been allocated.
func (f *Function) NumVRegs(c RegClass) int { return int(f.nextVRegID[c]) }

// AllocateConst appends a constant-pool entry and returns its index.
func (f *Function) AllocateConst(bytes []byte) int {
	f.ConstPool = append(f.ConstPool, ConstPoolEntry{Bytes: bytes})
	return len(f.ConstPool) - 1
}

// AppendBlock creates and appends a new, empty Block.
func (f *Function) AppendBlock() *Block {
	b := &Block{}
	f.Blocks = append(f.Blocks, b)
	return b
}

// BlockIndex returns the position of blk within f.Blocks, or -1.
func (f *Function) BlockIndex(blk *Block) int {
	for i, b := range f.Blocks {
		if b == blk {
			return i
		}
	}
	return -1
}

// AllInsts yields every instruction across all blocks, in program order,
// calling visit(blockIdx, instIdx, inst) for each. Used by the allocator's
// linear-scan-over-program-points construction.
func (f *Function) AllInsts(visit func(blockIdx, instIdx int, in *Inst)) {
	for bi, b := range f.Blocks {
		for ii, in := range b.Insts {
			visit(bi, ii, in)
		}
	}
}
