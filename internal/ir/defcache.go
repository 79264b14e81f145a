package ir

// DefCache gives O(1) access from a Value to its defining Instruction,
// exactly the "defining-instruction cache keyed by value id" the lowerer
// needs for its pattern-matching roots (spec §4.3), and which the
// optimizer's constant-propagation and rematerialization stages also use.
// Block parameters have no defining Instruction (they are phi-equivalent
// positions, not instructions) and are simply absent from the cache.
type DefCache struct {
	m map[ValueID]*Instruction
}

// BuildDefCache scans every instruction in f once and returns a populated
// DefCache. Callers should rebuild it after any pass that adds or removes
// instructions.
func (f *Function) BuildDefCache() *DefCache {
	dc := &DefCache{m: make(map[ValueID]*Instruction, f.nextValueID)}
	for _, blk := range f.blocks {
		for i := blk.first; i != nil; i = i.next {
			if i.rValue.Valid() {
				dc.m[i.rValue.ID()] = i
			}
			for _, rv := range i.rValues {
				if rv.Valid() {
					dc.m[rv.ID()] = i
				}
			}
		}
	}
	return dc
}

// Get returns v's defining Instruction, or nil if v is a block parameter
// or otherwise not found (e.g. stale cache after a mutating pass).
func (dc *DefCache) Get(v Value) *Instruction {
	if !v.Valid() {
		return nil
	}
	return dc.m[v.ID()]
}
