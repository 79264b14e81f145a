package emit

import "encoding/binary"

// PatchCallReloc overwrites the BL/B placeholder at byte offset off within
// code with the real branch encoding now that targetWordOffset (the
// target function's first instruction word, measured from the start of
// code) is known. internal/compiler's linking pass calls this once every
// function in a module has a final code offset, resolving the Relocs each
// Code carries (spec §2's "Executable Memory" stage, which folds per-
// function code blobs into one module-relative address space).
func PatchCallReloc(code []byte, off uint32, link bool, siteWordOffset, targetWordOffset int64) {
	rel := int32(targetWordOffset - siteWordOffset)
	binary.LittleEndian.PutUint32(code[off:], encodeUnconditionalBranch(link, uint32(rel)))
}
