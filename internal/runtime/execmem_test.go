package runtime

import "testing"

func TestAllocateCodeBlockFinalizeAndRelease(t *testing.T) {
	code := []byte{0x1f, 0x20, 0x03, 0xd5, 0xc0, 0x03, 0x5f, 0xd6} // nop; ret

	block, err := AllocateCodeBlock(len(code))
	if err != nil {
		t.Fatalf("AllocateCodeBlock: %v", err)
	}
	if block.Size() < len(code) {
		t.Fatalf("block size %d smaller than requested %d", block.Size(), len(code))
	}
	if block.Addr() == 0 {
		t.Fatal("block address must be nonzero before Release")
	}

	if err := block.Finalize(code); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	got := block.Bytes()[:len(code)]
	for i := range code {
		if got[i] != code[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, got[i], code[i])
		}
	}

	if err := block.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if block.Addr() != 0 {
		t.Error("Addr() after Release should be 0")
	}
	if err := block.Release(); err != nil {
		t.Errorf("double Release should be a no-op, got %v", err)
	}
}

func TestAllocateCodeBlockRoundsUpToPage(t *testing.T) {
	block, err := AllocateCodeBlock(1)
	if err != nil {
		t.Fatalf("AllocateCodeBlock: %v", err)
	}
	defer block.Release()
	if block.Size()%pageSize != 0 {
		t.Errorf("block size %d is not page-aligned (page=%d)", block.Size(), pageSize)
	}
}

func TestAllocateCodeBlockRejectsNothingForZero(t *testing.T) {
	// n<=0 is coerced to a minimum 1-byte (page-rounded) allocation rather
	// than erroring, matching mmap's own "size 0" rejection being avoided
	// at this layer.
	block, err := AllocateCodeBlock(0)
	if err != nil {
		t.Fatalf("AllocateCodeBlock(0): %v", err)
	}
	defer block.Release()
	if block.Size() == 0 {
		t.Error("expected a nonzero page-rounded allocation for n=0")
	}
}
